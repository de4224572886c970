// Package cmd provides the pulsation CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/searchktools/pulsation/config"
)

var (
	cfgFile string
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "pulsation",
	Short: "pulsation - filter chain HTTP server",
	Long: `pulsation is an HTTP/1.1 server built on epoll reactors and a worker pool.
Every request runs through a chain of filters: response writing, logging,
CORS, compression, static files, sessions, templates and routing.

Configuration:
  Config is loaded from pulsation.yaml in the current directory or
  /etc/pulsation/, or from the file given with --config.

  Environment variables override config values with the PULSATION_ prefix.
  Example: PULSATION_SERVER_PORT=9090`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pulsation.yaml)")
}

func initConfig() {
	v = config.NewViper(cfgFile)
}
