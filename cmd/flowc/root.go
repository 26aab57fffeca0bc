package main

import (
	"github.com/meikuraledutech/workflow/internal/config"
	"github.com/meikuraledutech/workflow/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// cli carries what the subcommands share once the root has loaded config.
type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "flowc",
		Short: "Compile workflow diagrams into execution templates",
		Long: `flowc reads a workflow diagram (nodes and edges as JSON) and prints the
compiled template: every step with its inputs and dependencies, and the
execution plan grouping steps into sequential and parallel stages.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWith(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Config{Debug: cfg.Log.Debug, Format: cfg.Log.Format})
			if err != nil {
				return err
			}
			c.cfg, c.log = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ./workflow.yaml if present)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-format", "json", "Log format: json or human")
	flags.String("entry", "start", "ID of the entry marker node")

	_ = c.v.BindPFlag("log.debug", flags.Lookup("debug"))
	_ = c.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = c.v.BindPFlag("entry_node", flags.Lookup("entry"))

	root.AddCommand(newCompileCmd(c), newFingerprintCmd(c))
	return root
}
