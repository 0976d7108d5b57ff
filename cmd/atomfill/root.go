package main

import (
	"fmt"
	"os"

	"github.com/chazu/atomfill/pkg/app"
	"github.com/chazu/atomfill/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// env is the state shared by every subcommand, filled in before each run.
type env struct {
	configPath string
	logLevel   string
	metricsOut string

	cfg      config.Config
	log      *logrus.Entry
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "atomfill",
		Short:         "fill CSG geometry with crystal lattice atoms",
		Long:          "atomfill evaluates geometry scripts, meshes them, and fills solids with a crystal lattice.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.writeMetrics()
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "logging level, overrides the config file")
	root.PersistentFlags().StringVar(&e.metricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(newFillCmd(e), newMeshCmd(e), newEvalCmd(e), newConfigCmd(e))
	return root
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if e.configPath != "" {
		var err error
		if cfg, err = config.Load(e.configPath); err != nil {
			return err
		}
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	log, err := config.NamedLogger("atomfill", cfg.Log.Level)
	if err != nil {
		return err
	}
	log.Logger.SetOutput(cmd.ErrOrStderr())
	e.cfg, e.log = cfg, log
	e.registry = prometheus.NewRegistry()
	return nil
}

// app builds the pipeline once the subcommand has applied its flags.
func (e *env) app() (*app.App, error) {
	return app.New(e.cfg, e.log, e.registry)
}

func (e *env) writeMetrics() error {
	if e.metricsOut == "" || e.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(e.metricsOut, e.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func readScript(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(src), nil
}
