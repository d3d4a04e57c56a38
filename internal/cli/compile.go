package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pay-theory/dynaquery/internal/request"
	"github.com/pay-theory/dynaquery/pkg/compiler"
	"github.com/pay-theory/dynaquery/pkg/core"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Compact bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Print the DynamoDB commands for a request file",
		Long: `Compile every document of a YAML request file and print the resulting
commands as JSON, one per line in compact mode. Nothing is sent. Use - to
read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "print one command per line")

	return cmd
}

func runCompile(opts *CompileOptions, path string, out io.Writer) error {
	cmds, err := compileFile(opts.RootOptions, path)
	if err != nil {
		return err
	}

	for _, cmd := range cmds {
		if err := writeJSON(out, cmd, opts.Compact); err != nil {
			return err
		}
	}
	return nil
}

// compileFile decodes, validates and compiles every request in path.
func compileFile(opts *RootOptions, path string) ([]core.Command, error) {
	reqs, err := request.DecodeFile(path)
	if err != nil {
		return nil, err
	}

	cmds := make([]core.Command, 0, len(reqs))
	for i, req := range reqs {
		if err := req.Validate(opts.registry); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		n, err := req.Node()
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		cmd, err := compiler.Compile(n)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func writeJSON(out io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(out)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
