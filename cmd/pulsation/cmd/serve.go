package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchktools/pulsation/app"
	"github.com/searchktools/pulsation/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start the server and serve until interrupted.

Besides the configured filters, GET /dynamic/... renders dynamic.html from
the view directory when view.enabled is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
			return err
		}
		if err := v.BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
			return err
		}
		if err := v.BindPFlag("tracing.enabled", cmd.Flags().Lookup("trace")); err != nil {
			return err
		}

		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		log, err := app.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync()

		if used := v.ConfigFileUsed(); used != "" {
			log.Info("loaded config", zap.String("file", used))
		}

		a, err := app.New(cfg, log)
		if err != nil {
			return fmt.Errorf("build server: %w", err)
		}
		if cfg.View.Enabled {
			a.Router().Add("GET", "/dynamic/*page", app.DynamicPage)
		}
		return a.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("trace", false, "export request spans to stdout")
	rootCmd.AddCommand(serveCmd)
}
