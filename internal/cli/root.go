// Package cli implements the tracequery command.
package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "tracequery"

// NewViper creates a new viper instance configured.
func NewViper() *viper.Viper {
	vp := viper.New()

	// read config from a file
	vp.SetConfigName("tracequery") // name of config file (without extension)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")

	// read config from environment variables
	vp.SetEnvPrefix(envPrefix) // env var must start with TRACEQUERY_
	// replace - by _ for environment variable names
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()
	return vp
}

// initLogrus configures the standard logger for the CLI.
func initLogrus(debug bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		TimestampFormat: time.DateTime,
	})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// New builds the root command with all subcommands.
func New(vp *viper.Viper, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "tracequery",
		Short:         "Inspect chrometrace trace files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := vp.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := vp.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return err
				}
			}
			initLogrus(vp.GetBool("debug"))
			logrus.Debug("enabled debug mode")
			return nil
		},
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug mode")
	root.SetOut(out)

	root.AddCommand(
		newSummaryCommand(vp),
		newEventsCommand(vp),
		newRepairCommand(vp),
		newExportCommand(vp),
	)
	return root
}

// Execute runs the CLI against os.Args.
func Execute() {
	vp := NewViper()
	root := New(vp, os.Stdout)
	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
