package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/e4code/e4/config"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("e4 command failed")
		return 1
	}
	return 0
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "e4",
		Short:         "Text editing core: tokenize, highlight, search and edit files",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/e4/config.yaml)")

	root.AddCommand(newTokensCmd(flags))
	root.AddCommand(newHighlightCmd(flags))
	root.AddCommand(newFindCmd(flags))
	root.AddCommand(newReplaceCmd(flags))
	root.AddCommand(newMatchCmd(flags))
	root.AddCommand(newLsCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newKeysCmd(flags))
	root.AddCommand(newViewCmd(flags))
	root.AddCommand(newVersionCmd())

	return root
}

// loadWorkspace reads the configuration and builds a workspace for one
// command. The caller closes it.
func loadWorkspace(cmd *cobra.Command, flags *rootFlags, opts ...workspaceOption) (*workspace, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	opts = append([]workspaceOption{withConfigPath(flags.configPath)}, opts...)
	return newWorkspace(cmd.Context(), cfg, opts...)
}
