package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/cache"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/config"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/gitinfo"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/history"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/reasoner"
	"github.com/abdidvp/apiweave/internal/application"
)

var (
	version = "dev"
	commit  = "none"
)

// globals are the persistent flags and the logger shared by every command.
type globals struct {
	workspace string
	verbose   bool
	log       *zap.Logger
}

func (g *globals) pipeline() *application.PipelineService {
	return application.NewPipelineService(
		config.New(),
		cache.New(),
		history.New(),
		gitinfo.New(),
		reasoner.New,
		g.log,
	)
}

func newRootCmd() *cobra.Command {
	g := &globals{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "apiweave",
		Short: "Weave two APIs into one integration plan",
		Long: "apiweave normalizes two extracted API descriptions, proposes entity and field mappings " +
			"between them, validates your integration decisions and generates a reviewable integration plan.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logCfg := zap.NewProductionConfig()
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if g.verbose {
				logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := logCfg.Build()
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			g.log = logger

			abs, err := filepath.Abs(g.workspace)
			if err != nil {
				return fmt.Errorf("resolving workspace: %w", err)
			}
			g.workspace = abs
			return reasoner.LoadDotEnv(abs)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.log.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&g.workspace, "workspace", "w", ".", "Workspace holding .apiweave.yaml, .env and the output directory")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newNormalizeCmd(g))
	cmd.AddCommand(newMapCmd(g))
	cmd.AddCommand(newQuestionnaireCmd(g))
	cmd.AddCommand(newPlanCmd(g))
	cmd.AddCommand(newHistoryCmd(g))
	cmd.AddCommand(newValidateCmd(g))
	cmd.AddCommand(newMCPCmd(g))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

// ExecuteContext runs the CLI with ctx, so an interrupt cancels in-flight
// reasoner calls.
func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
