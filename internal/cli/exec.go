package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/core"
	"github.com/pay-theory/dynaquery/pkg/executor"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Compact bool
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <request-file>",
		Short: "Send the requests of a request file to DynamoDB",
		Long: `Compile every document of a YAML request file, then send the commands in
order and print each result as JSON. All documents are compiled before the
first one is sent, so a malformed file sends nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "print one result per line")

	return cmd
}

func runExec(ctx context.Context, opts *ExecOptions, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cmds, err := compileFile(opts.RootOptions, path)
	if err != nil {
		return err
	}

	client, err := opts.newClient(ctx, opts.sessionCfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	exec := executor.New(client, opts.logger)

	for i, cmd := range cmds {
		if tx, ok := cmd.(*core.TransactWriteCommand); ok && tx.ClientRequestToken == "" {
			tx.ClientRequestToken = uuid.NewString()
			opts.logger.Debug("generated client request token",
				zap.Int("request", i),
				zap.String("token", tx.ClientRequestToken))
		}

		res, err := exec.Execute(ctx, cmd)
		if err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
		if err := writeJSON(out, res, opts.Compact); err != nil {
			return err
		}
	}
	return nil
}
