package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orrery/units"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse unit literals the way the manifest does",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "duration <value>",
			Short: `Parse a duration such as "365d 6h"`,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := units.ParseDuration(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v = %g s\n", d, d.TotalSeconds())
				return nil
			},
		},
		&cobra.Command{
			Use:   "si <value>",
			Short: `Parse an SI-prefixed number such as "149.6G"`,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := units.ParseSIPrefixed(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v = %g\n", v, v.BaseValue())
				return nil
			},
		},
		&cobra.Command{
			Use:   "distance <value>",
			Short: "Parse a length in SI-prefixed meters and pick a display unit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := units.ParseSIPrefixed(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", units.DistanceFromSI(v))
				return nil
			},
		},
	)
	return cmd
}
