package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"glucare/internal/render"

	"github.com/spf13/cobra"
)

func newChartCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Export the readings chart as SVG or PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("out")
			focus, _ := cmd.Flags().GetInt("focus")
			format := render.SVG
			if strings.EqualFold(filepath.Ext(out), ".png") {
				format = render.PNG
			}

			d, err := o.mount(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer d.Unmount()

			if v := d.View(); v.Error != "" {
				return errors.New(v.Error)
			}
			layout := d.Layout()
			if layout.Empty() {
				return errors.New("no readings to chart")
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := render.Chart(f, layout, format, render.Options{Focus: focus, Title: "Glucose (mg/dL)"}); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), map[string]any{"path": out, "points": len(layout.Points)},
				fmt.Sprintf("Wrote %d points to %s", len(layout.Points), out))
		},
	}
	cmd.Flags().StringP("out", "o", "glucare-chart.svg", "Output file; a .png extension renders PNG")
	cmd.Flags().Int("focus", -1, "Index of the point to emphasize, oldest first")
	return cmd
}
