package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/propsync/internal/config"
)

// ConfigInitOptions holds flags for config init.
type ConfigInitOptions struct {
	*RootOptions
	Force bool
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}

	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	return cmd
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the effective configuration",
		Long: `Load configuration from file, environment and flags, validate it and
print the effective result.

Examples:
  propsync config validate --config ./propsync.yaml
  PROPSYNC_RESOURCE_FILE=./Gemfile propsync config validate --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}

			text, err := yaml.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, CodeConfig, "failed to render configuration", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(cfg, "configuration valid\n\n"+string(text))
		},
	}
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigInitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file from defaults and flags",
		Long: `Write a configuration file built from the defaults and the flags given on
the command line. --property and --file are required.

Examples:
  propsync config init --property Gemfile --file ./Gemfile
  propsync config init ./deploy/propsync.yaml --backend badger --db ./graph --property Gemfile --file ./Gemfile`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigName
			if len(args) == 1 {
				path = args[0]
			}
			return runConfigInit(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")
	return cmd
}

func runConfigInit(opts *ConfigInitOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, CodeConfig,
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path))
	}

	cfg, err := config.FromFlags(cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, CodeConfig, "invalid configuration", err)
	}

	if err := config.Save(cfg, path); err != nil {
		return WrapExitError(ExitCommandError, CodeConfig, "failed to write configuration", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(map[string]string{"path": path}, fmt.Sprintf("wrote %s\n", path))
}
