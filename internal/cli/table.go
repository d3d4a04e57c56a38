package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spf13/cobra"

	"github.com/pay-theory/dynaquery/pkg/schema"
)

// TableOptions holds flags for the table commands.
type TableOptions struct {
	*RootOptions
	All         bool
	Provisioned bool
	Read        int64
	Write       int64
	Wait        time.Duration
}

// NewTableCommand creates the table command and its subcommands.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Create, describe or delete the tables of a schema file",
	}

	cmd.PersistentFlags().DurationVar(&opts.Wait, "wait", schema.DefaultWaitTimeout,
		"how long to wait for the table to settle, 0 to return immediately")

	create := &cobra.Command{
		Use:   "create [table...]",
		Short: "Create tables described in --schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableCreate(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
	create.Flags().BoolVar(&opts.All, "all", false, "create every table in the schema")
	create.Flags().BoolVar(&opts.Provisioned, "provisioned", false, "use provisioned billing")
	create.Flags().Int64Var(&opts.Read, "rcu", 5, "read capacity units when provisioned")
	create.Flags().Int64Var(&opts.Write, "wcu", 5, "write capacity units when provisioned")

	describe := &cobra.Command{
		Use:   "describe <table>",
		Short: "Print the status of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableDescribe(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	del := &cobra.Command{
		Use:   "delete <table>...",
		Short: "Delete tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableDelete(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(create, describe, del)
	return cmd
}

func (o *TableOptions) manager(ctx context.Context) (*schema.Manager, error) {
	client, err := o.newClient(ctx, o.sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return schema.NewManager(client, o.registry,
		schema.WithWaitTimeout(o.Wait),
		schema.WithManagerLogger(o.logger)), nil
}

func runTableCreate(ctx context.Context, opts *TableOptions, names []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.registry == nil {
		return fmt.Errorf("table create needs --schema")
	}
	if opts.All {
		names = opts.registry.Names()
	}
	if len(names) == 0 {
		return fmt.Errorf("name at least one table or pass --all")
	}

	var tableOpts []schema.TableOption
	if opts.Provisioned {
		tableOpts = append(tableOpts, schema.WithThroughput(opts.Read, opts.Write))
	}

	m, err := opts.manager(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := m.CreateTable(ctx, name, tableOpts...); err != nil {
			return err
		}
		fmt.Fprintf(out, "created %s\n", name)
	}
	return nil
}

// tableStatus is the printed form of a table description.
type tableStatus struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	ItemCount int64    `json:"itemCount"`
	Billing   string   `json:"billingMode,omitempty"`
	Indexes   []string `json:"indexes,omitempty"`
}

func runTableDescribe(ctx context.Context, opts *TableOptions, name string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := opts.manager(ctx)
	if err != nil {
		return err
	}
	desc, err := m.DescribeTable(ctx, name)
	if err != nil {
		return err
	}
	return writeJSON(out, statusOf(desc), false)
}

func statusOf(desc *types.TableDescription) tableStatus {
	st := tableStatus{
		Name:      aws.ToString(desc.TableName),
		Status:    string(desc.TableStatus),
		ItemCount: aws.ToInt64(desc.ItemCount),
	}
	if desc.BillingModeSummary != nil {
		st.Billing = string(desc.BillingModeSummary.BillingMode)
	}
	for _, gsi := range desc.GlobalSecondaryIndexes {
		st.Indexes = append(st.Indexes, aws.ToString(gsi.IndexName))
	}
	for _, lsi := range desc.LocalSecondaryIndexes {
		st.Indexes = append(st.Indexes, aws.ToString(lsi.IndexName))
	}
	return st
}

func runTableDelete(ctx context.Context, opts *TableOptions, names []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := opts.manager(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := m.DeleteTable(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", name)
	}
	return nil
}
