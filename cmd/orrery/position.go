package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/units"
)

// propagate loads the system and places every body at the moment named by
// at (an MJD, or now when empty). It fails if any of ids has no position.
func (a *app) propagate(ctx context.Context, at string, ids ...string) (*kb.KnowledgeBase, moment.Moment, error) {
	now := moment.Now()
	if at != "" {
		m, err := moment.ParseDays(at)
		if err != nil {
			return nil, moment.Moment{}, err
		}
		now = m
	}

	store, sys, err := a.loadSystem()
	if err != nil {
		return nil, moment.Moment{}, err
	}
	for _, id := range ids {
		if _, ok := store.GetBody(id); !ok {
			return nil, moment.Moment{}, fmt.Errorf("unknown body %q", id)
		}
	}

	res, err := core.NewEngine(store, sys, a.log).Step(ctx, now)
	if err != nil {
		return nil, moment.Moment{}, err
	}
	for _, id := range ids {
		if slices.Contains(res.Skipped, id) {
			return nil, moment.Moment{}, fmt.Errorf("%s has no position at %v", id, now)
		}
	}
	return store, now, nil
}

func newPositionCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "position <body>",
		Short: "Print a body's position at a moment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			store, now, err := a.propagate(cmd.Context(), at, id)
			if err != nil {
				return err
			}

			body, _ := store.GetBody(id)
			abs, err := store.AbsolutePosition(id)
			if err != nil {
				return err
			}
			local := body.Placement.Local.Vec()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "body:     %s\n", id)
			fmt.Fprintf(out, "moment:   %v\n", now)
			if body.ParentID != "" {
				fmt.Fprintf(out, "parent:   %s\n", body.ParentID)
			}
			fmt.Fprintf(out, "local:    %s\n", formatVec(local))
			fmt.Fprintf(out, "absolute: %s\n", formatVec(abs))
			fmt.Fprintf(out, "cell:     (%d, %d, %d)\n", body.Placement.Cell.X, body.Placement.Cell.Y, body.Placement.Cell.Z)
			fmt.Fprintf(out, "distance: %v\n", units.DistanceFromMeters(r3.Norm(local)))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "moment as an MJD (default now)")
	return cmd
}

func newSightCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "sight <observer> <target>",
		Short: "Check the line of sight between two bodies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, now, err := a.propagate(cmd.Context(), at, args[0], args[1])
			if err != nil {
				return err
			}
			s, err := core.LookAt(store, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s -> %s at %v\n", args[0], args[1], now)
			fmt.Fprintf(out, "range:     %v\n", units.DistanceFromMeters(s.Range))
			fmt.Fprintf(out, "elevation: %.3f deg\n", s.Elevation)
			if s.Visible() {
				fmt.Fprintln(out, "visible")
			} else {
				fmt.Fprintf(out, "blocked by %v\n", s.Blocked)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "moment as an MJD (default now)")
	return cmd
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("(%.6e, %.6e, %.6e) m", v.X, v.Y, v.Z)
}
