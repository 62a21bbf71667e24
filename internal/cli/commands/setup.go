package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/batonlint/internal/cli/output"
	"github.com/leapstack-labs/batonlint/internal/config"
	"github.com/leapstack-labs/batonlint/pkg/lint"
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

type configKey struct{}

type rendererKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithRenderer stores r in ctx.
func WithRenderer(ctx context.Context, r *output.Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the configuration, logger and renderer the
// root command stored. A non-empty format overrides the configured output
// mode.
func NewCommandContext(cmd *cobra.Command, format string) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		cfg = config.Default()
	}

	r, ok := ctx.Value(rendererKey{}).(*output.Renderer)
	if !ok || format != "" {
		if format == "" {
			format = cfg.Output
		}
		mode, err := output.ParseMode(format)
		if err != nil {
			return nil, err
		}
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: r,
	}, nil
}

// newEngine builds a lint engine for the configured parser backend.
func newEngine(cfg *config.Config, lintCfg *lint.Config, logger *slog.Logger) (*lint.Engine, error) {
	p, err := sqlast.Get(cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	return lint.NewEngine(
		lint.WithParser(p),
		lint.WithConfig(lintCfg),
		lint.WithLogger(logger),
	), nil
}
