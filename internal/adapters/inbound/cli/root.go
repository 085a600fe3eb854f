package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	storeDir   string
	tokenEnv   string
	verbose    bool
	jsonOutput bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "repocompat",
		Short: "Score how safely one JS/TS codebase merges into another",
		Long: "repocompat parses a base repository and one or more targets into structural models, " +
			"diffs their files, dependency manifests and API endpoints, and produces a bounded " +
			"compatibility score with a risk level and recommended actions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			g.logger = newLogger(cmd.ErrOrStderr(), g.verbose)
			slog.SetDefault(g.logger)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to .repocompat.yaml or the directory holding it (default: current directory)")
	pf.StringVar(&g.storeDir, "store", "", "Directory for stored analysis results (overrides store.dir)")
	pf.StringVar(&g.tokenEnv, "token-env", "REPOCOMPAT_TOKEN", "Environment variable holding the access token for remote repositories")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")
	pf.BoolVar(&g.jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAnalyzeCmd(g))
	cmd.AddCommand(newResultsCmd(g))
	cmd.AddCommand(newDepsCmd(g))
	cmd.AddCommand(newEndpointsCmd(g))
	cmd.AddCommand(newStructureCmd(g))
	cmd.AddCommand(newMCPCmd(g))
	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
