// Package cli implements the dynaquery command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/executor"
	"github.com/pay-theory/dynaquery/pkg/schema"
	"github.com/pay-theory/dynaquery/pkg/session"
)

// EnvPrefix prefixes every environment variable the tool reads, as in
// DYNAQUERY_REGION.
const EnvPrefix = "DYNAQUERY"

// configKeys are the session settings read from flags, environment and the
// config file.
var configKeys = []string{
	"region",
	"endpoint",
	"access_key_id",
	"secret_access_key",
	"session_token",
	"role_arn",
	"external_id",
	"session_duration",
	"max_retries",
	"timeout",
}

// Client is the DynamoDB surface the commands use.
type Client interface {
	executor.DynamoDBAPI
	schema.TableAPI
}

// ClientFactory builds the DynamoDB client used by exec and table.
type ClientFactory func(ctx context.Context, cfg session.Config) (Client, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigFile string
	SchemaFile string

	v          *viper.Viper
	newClient  ClientFactory
	logger     *zap.Logger
	registry   *schema.Registry
	sessionCfg session.Config
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{newClient: sessionClient})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	opts.v = viper.New()

	cmd := &cobra.Command{
		Use:   "dynaquery",
		Short: "Compile and run DynamoDB requests",
		Long: `Compile YAML request documents into DynamoDB commands, or send them.

Connection settings come from flags, DYNAQUERY_* environment variables and an
optional YAML config file, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests to stderr")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default .dynaquery.yaml if present)")
	flags.StringVar(&opts.SchemaFile, "schema", "", "YAML table schema used to validate keys")
	flags.String("region", "", "AWS region")
	flags.String("endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000")
	flags.String("role-arn", "", "IAM role to assume")
	flags.String("external-id", "", "external id for the assumed role")
	flags.Int("max-retries", 0, "maximum request attempts")

	for _, name := range []string{"region", "endpoint", "role-arn", "external-id", "max-retries"} {
		_ = opts.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
	_ = opts.v.BindPFlag("schema", flags.Lookup("schema"))
	_ = opts.v.BindPFlag("verbose", flags.Lookup("verbose"))

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewTableCommand(opts))

	return cmd
}

// load resolves configuration, logger and schema before any command runs.
func (o *RootOptions) load() error {
	v := o.v
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("schema")

	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
	} else {
		v.SetConfigName(".dynaquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.ConfigFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&o.sessionCfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	logger, err := newLogger(v.GetBool("verbose"))
	if err != nil {
		return err
	}
	o.logger = logger

	if path := v.GetString("schema"); path != "" {
		reg, err := schema.LoadFile(path)
		if err != nil {
			return err
		}
		o.registry = reg
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func sessionClient(ctx context.Context, cfg session.Config) (Client, error) {
	sess, err := session.NewSession(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	client, err := sess.Client()
	if err != nil {
		return nil, err
	}
	return client, nil
}
