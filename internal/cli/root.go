package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-image-identifier/internal/config"
	"go-image-identifier/internal/container"
	"go-image-identifier/internal/logger"
	"go-image-identifier/internal/tui"
)

type rootFlags struct {
	configPath string
	logFile    string
	logLevel   string
}

// NewRootCmd builds the command tree. opts are passed to every container the
// commands create.
func NewRootCmd(opts ...container.Option) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "identifier",
		Short:         "Identify what is in an image with a local classification model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.build(true, opts)
			if err != nil {
				return err
			}
			defer c.Close()
			return runTUI(cmd.Context(), c)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write logs to this file (overrides LOG_FILE)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	cmd.AddCommand(newConsoleCmd(flags, opts))
	cmd.AddCommand(newClassifyCmd(flags, opts))
	return cmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the config file and applies flag overrides
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

// build configures logging and wires the container. Interactive front ends
// own the terminal, so their logs are discarded unless a log file is set.
func (f *rootFlags) build(interactive bool, opts []container.Option) (*container.Container, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return buildContainer(cfg, interactive, opts)
}

func buildContainer(cfg *config.Config, interactive bool, opts []container.Option) (*container.Container, error) {
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile, interactive); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	c, err := container.NewContainer(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return c, nil
}

func runTUI(ctx context.Context, c *container.Container) error {
	c.Session().Start(ctx)

	model := tui.NewModel(ctx, c.Session(), c.LocalFiles())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
