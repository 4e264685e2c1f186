package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/slot-engine/config"
)

// RootOptions holds state shared by all commands.
type RootOptions struct {
	Viper  *viper.Viper
	Format string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the slotengine CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Viper: config.New()})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slotengine",
		Short: "Slot resourcing and availability engine",
		Long:  "Assigns concrete resources (staff, rooms, vehicles) to time-slotted bookings and answers availability queries.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.String("env", "development", "environment (development|production)")
	flags.String("log-level", "", "log level override (debug|info|warn|error)")

	// Flags win over file and environment once bound.
	_ = opts.Viper.BindPFlag("env", flags.Lookup("env"))
	_ = opts.Viper.BindPFlag("log_level", flags.Lookup("log-level"))

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAllocateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
