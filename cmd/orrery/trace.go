package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orrery/units"
)

func newTraceCmd(a *app) *cobra.Command {
	var points int
	cmd := &cobra.Command{
		Use:   "trace <body>",
		Short: "Print the sampled path of a body's Keplerian orbit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if points <= 0 {
				return fmt.Errorf("--points must be positive, got %d", points)
			}
			_, sys, err := a.loadSystem()
			if err != nil {
				return err
			}
			o, ok := sys.Orbit(args[0])
			if !ok {
				return fmt.Errorf("%q has no Keplerian orbit", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s: periapsis %v, apoapsis %v\n", args[0],
				units.DistanceFromMeters(o.Periapsis()),
				units.DistanceFromMeters(o.Apoapsis()),
			)
			for _, p := range o.Trace(points) {
				fmt.Fprintf(out, "%.6e %.6e %.6e\n", p.X, p.Y, p.Z)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&points, "points", 64, "number of samples")
	return cmd
}
