package cli

import (
	"fmt"

	"glucare/internal/prefs"

	"github.com/spf13/cobra"
)

func newThemeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{prefs.ThemeDark, prefs.ThemeLight, "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.openPrefs()
			if err != nil {
				return err
			}
			theme := p.Theme()
			switch {
			case len(args) == 0:
			case args[0] == "toggle":
				if theme, err = p.ToggleTheme(); err != nil {
					return err
				}
			default:
				if err := p.SetTheme(args[0]); err != nil {
					return err
				}
				theme = args[0]
			}
			return o.print(cmd.OutOrStdout(), map[string]string{"theme": theme}, "Theme: "+theme)
		},
	}
}

func newDisclaimerCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "disclaimer [accept]",
		Short:     "Show or acknowledge the medical disclaimer",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"accept"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.openPrefs()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if args[0] != "accept" {
					return fmt.Errorf("unknown argument %q", args[0])
				}
				if err := p.AcceptDisclaimer(); err != nil {
					return err
				}
			}
			accepted := p.DisclaimerAccepted()
			text := disclaimerNotice
			if accepted {
				text = "Disclaimer accepted"
			}
			return o.print(cmd.OutOrStdout(), map[string]bool{"accepted": accepted}, text)
		},
	}
}
