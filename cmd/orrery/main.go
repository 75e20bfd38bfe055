// Command orrery propagates a system of orbiting bodies and inspects it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/kb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared between the root command and its children.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
	log     logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:   "orrery",
		Short: "Keplerian orbit propagation engine",
		Long: `orrery loads a system manifest of bodies on Keplerian orbits, TLE element
sets or fixed positions, and propagates them on a simulation clock.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.String("manifest", "configs/solar.system.yaml", "system manifest to load")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")
	cobra.CheckErr(bindFlags(a.v, flags, map[string]string{
		"manifest":   "manifest",
		"log.level":  "log-level",
		"log.format": "log-format",
	}))

	root.AddCommand(
		newRunCmd(a),
		newPositionCmd(a),
		newSightCmd(a),
		newTraceCmd(a),
		newParseCmd(),
	)
	return root
}

// loadSystem opens the configured manifest into a fresh knowledge base.
func (a *app) loadSystem() (*kb.KnowledgeBase, *core.System, error) {
	f, err := os.Open(a.cfg.Manifest)
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	store := kb.NewKnowledgeBase()
	sys, err := core.LoadSystem(store, f)
	if err != nil {
		return nil, nil, err
	}
	return store, sys, nil
}

const shutdownTimeout = 5 * time.Second
