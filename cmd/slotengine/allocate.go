package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
)

// AllocateOptions holds flags for the allocate command.
type AllocateOptions struct {
	*RootOptions
	File string
}

// NewAllocateCommand creates the allocate command.
func NewAllocateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AllocateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Resource the bookings of a scenario file",
		Long: `Run the engine over a YAML scenario file and print one outcome per
booking, in file order. Bookings are processed in the order listed, so
earlier bookings claim scarce resources first.

Example:
  slotengine allocate -f scenario.yaml
  slotengine allocate -f scenario.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocate(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "scenario YAML file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// OutcomeLine is one booking's result in JSON output.
type OutcomeLine struct {
	BookingID      string            `json:"booking_id"`
	ServiceID      string            `json:"service_id"`
	Slot           string            `json:"slot"`
	Resourced      bool              `json:"resourced"`
	Commitments    map[string]string `json:"commitments,omitempty"`
	Unresourceable []string          `json:"unresourceable,omitempty"`
}

func runAllocate(opts *AllocateOptions, out io.Writer) error {
	f, err := os.Open(opts.File)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	sc, err := factory.DecodeScenarioYAML(f)
	if err != nil {
		return err
	}

	acc, err := generic.ResourceBookings(sc.Resources, sc.Bookings, generic.ResourceBookingsOptions{})
	if err != nil {
		return fmt.Errorf("allocate: %w", err)
	}

	if opts.Format == "json" {
		return writeOutcomesJSON(out, acc.Resourced)
	}
	return writeOutcomesText(out, acc.Resourced)
}

func writeOutcomesText(out io.Writer, outcomes []generic.BookingOutcome) error {
	resourced := 0
	for _, o := range outcomes {
		b := o.OutcomeBooking()
		switch o := o.(type) {
		case generic.ResourcedBooking:
			resourced++
			parts := make([]string, len(o.Commitments))
			for i, c := range o.Commitments {
				parts[i] = fmt.Sprintf("%s=%s", c.Requirement.RequirementID(), c.Resource.ID)
			}
			fmt.Fprintf(out, "%s %s resourced %s\n", b.ID, b.Timeslot, strings.Join(parts, " "))
		case generic.UnresourceableBooking:
			ids := o.RequirementIDs()
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = string(id)
			}
			fmt.Fprintf(out, "%s %s unresourceable %s\n", b.ID, b.Timeslot, strings.Join(parts, " "))
		}
	}
	_, err := fmt.Fprintf(out, "%d resourced, %d unresourceable\n", resourced, len(outcomes)-resourced)
	return err
}

func writeOutcomesJSON(out io.Writer, outcomes []generic.BookingOutcome) error {
	lines := make([]OutcomeLine, 0, len(outcomes))
	for _, o := range outcomes {
		b := o.OutcomeBooking()
		line := OutcomeLine{
			BookingID: string(b.ID),
			ServiceID: string(b.Service().ID),
			Slot:      b.Timeslot.String(),
			Resourced: o.IsResourced(),
		}
		switch o := o.(type) {
		case generic.ResourcedBooking:
			line.Commitments = make(map[string]string, len(o.Commitments))
			for _, c := range o.Commitments {
				line.Commitments[string(c.Requirement.RequirementID())] = string(c.Resource.ID)
			}
		case generic.UnresourceableBooking:
			for _, id := range o.RequirementIDs() {
				line.Unresourceable = append(line.Unresourceable, string(id))
			}
		}
		lines = append(lines, line)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(lines)
}
