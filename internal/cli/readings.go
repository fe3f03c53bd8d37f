package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"glucare/internal/dashboard"
	"glucare/internal/domain"

	"github.com/spf13/cobra"
)

func newReadingsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readings",
		Short: "List and add glucose readings",
	}
	cmd.AddCommand(newReadingsListCmd(o), newReadingsAddCmd(o))
	return cmd
}

func newReadingsListCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List readings, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			unit, _ := cmd.Flags().GetString("unit")
			if !domain.ValidUnit(unit) {
				return fmt.Errorf("unit must be %q or %q", domain.UnitMgDL, domain.UnitMmolL)
			}

			d, err := o.mount(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer d.Unmount()

			v := d.View()
			if v.Error != "" {
				return errors.New(v.Error)
			}
			if o.format == formatJSON {
				return o.print(cmd.OutOrStdout(), itemsIn(v.Items, unit), "")
			}
			if v.Empty {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), v.EmptyMessage)
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, it := range v.Items {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Date, it.Time, valueIn(it.Value, unit), it.Notes)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("unit", "u", domain.UnitMgDL, "Display unit: mg/dL or mmol/L")
	return cmd
}

// itemsIn converts values and their text to unit.
func itemsIn(items []dashboard.ItemView, unit string) []dashboard.ItemView {
	out := make([]dashboard.ItemView, len(items))
	for i, it := range items {
		it.ValueText = valueIn(it.Value, unit)
		it.Value = domain.ConvertGlucose(it.Value, domain.UnitMgDL, unit)
		out[i] = it
	}
	return out
}

func valueIn(mgdl float64, unit string) string {
	v := domain.ConvertGlucose(mgdl, domain.UnitMgDL, unit)
	if unit == domain.UnitMmolL {
		return strconv.FormatFloat(v, 'f', 1, 64) + " " + unit
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}

func newReadingsAddCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add VALUE",
		Short: "Add a reading in mg/dL",
		Long:  "Add a reading in mg/dL. Date and time default to now in the configured time zone.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := o.mount(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer d.Unmount()

			form := d.Form()
			form.Open()
			_ = form.SetField(dashboard.FieldValue, args[0])
			for _, name := range []string{dashboard.FieldDate, dashboard.FieldTime, dashboard.FieldNotes} {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					_ = form.SetField(name, v)
				}
			}

			if err := form.Submit(cmd.Context()); err != nil {
				return errors.New(dashboard.UserMessage(err))
			}

			v := d.View()
			if len(v.Items) == 0 {
				return o.print(cmd.OutOrStdout(), v.Items, "Saved")
			}
			latest := v.Items[0]
			return o.print(cmd.OutOrStdout(), v.Items, fmt.Sprintf("Saved. Latest: %s on %s %s", latest.ValueText, latest.Date, latest.Time))
		},
	}
	cmd.Flags().String(dashboard.FieldDate, "", "Date as YYYY-MM-DD")
	cmd.Flags().String(dashboard.FieldTime, "", "Time as HH:MM")
	cmd.Flags().String(dashboard.FieldNotes, "", "Free-form notes")
	return cmd
}
