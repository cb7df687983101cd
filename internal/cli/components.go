package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/agentdeck/internal/app"
	"github.com/dshills/agentdeck/internal/plugin"
)

func (c *cli) newListCommand() *cobra.Command {
	var enabledOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				reg := a.Registry()
				comps := reg.Available()
				if enabledOnly {
					comps = reg.EnabledComponents()
				}
				printComponents(cmd.OutOrStdout(), reg, comps)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only list enabled components")
	return cmd
}

func printComponents(w io.Writer, reg *plugin.Registry, comps []plugin.Component) {
	st := newStyles(w)
	if len(comps) == 0 {
		fmt.Fprintln(w, st.muted.Render("No components found in "+reg.Root()))
		return
	}
	for _, comp := range comps {
		mark := st.muted.Render("[ ]")
		if reg.IsEnabled(comp.Name()) {
			mark = st.success.Render("[x]")
		}
		line := mark + " " + st.name.Render(comp.Name())
		if !comp.Available() {
			line += " " + st.err.Render("(unavailable)")
		}
		fmt.Fprintln(w, line)

		desc := comp.Description()
		if desc == "" {
			desc = "No description available"
		}
		fmt.Fprintln(w, "    "+st.muted.Render(desc))
		if missing := reg.Checker().Missing(comp.Requirements()); len(missing) > 0 {
			fmt.Fprintln(w, "    "+st.warning.Render("missing: "+strings.Join(missing, ", ")))
		}
	}
	fmt.Fprintf(w, "\n%s %d available, %d enabled\n",
		st.title.Render("Components:"), len(reg.Names()), len(reg.EnabledComponents()))
}

func (c *cli) newEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>...",
		Short: "Enable components and save the selection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				reg := a.Registry()
				for _, name := range args {
					if err := reg.Enable(name); err != nil {
						return err
					}
				}
				if err := reg.SaveConfig(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enabled: %s\n", strings.Join(args, ", "))
				return nil
			})
		},
	}
}

func (c *cli) newDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>...",
		Short: "Disable components and save the selection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				reg := a.Registry()
				for _, name := range args {
					reg.Disable(name)
				}
				if err := reg.SaveConfig(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Disabled: %s\n", strings.Join(args, ", "))
				return nil
			})
		},
	}
}

func (c *cli) newRenderCommand() *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "render <name>",
		Short: "Render an enabled component to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				render := a.Render
				if preview {
					render = a.Preview
				}
				out, err := render(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "render even if the component is not enabled")
	return cmd
}

func (c *cli) newRescanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan",
		Short: "Discover components and report what each unit produced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				report := a.Rescan(cmd.Context())
				printReport(cmd.OutOrStdout(), report)
				return report.Err
			})
		},
	}
}

func printReport(w io.Writer, report plugin.Report) {
	writeReport(w, newStyles(w), report)
}

// statusWidth pads the status column. Padding is applied before styling so
// escape sequences do not count toward the width.
const statusWidth = 12

func writeReport(w io.Writer, st styles, report plugin.Report) {
	fmt.Fprintln(w, st.title.Render("Scanned "+report.Root))
	for _, o := range report.Units {
		style := st.err
		switch o.Status {
		case plugin.OutcomeLive:
			style = st.success
		case plugin.OutcomePlaceholder:
			style = st.warning
		}
		status := style.Render(fmt.Sprintf("%-*s", statusWidth, o.Status))
		name := o.Name
		if name == "" {
			name = o.Unit.Name
		}
		fmt.Fprintf(w, "  %s %s %s\n", status, st.name.Render(name), st.muted.Render("("+o.Unit.Name+")"))
		if o.Err != nil {
			fmt.Fprintln(w, "    "+st.muted.Render(o.Err.Error()))
		}
	}
	if len(report.Ignored) > 0 {
		fmt.Fprintln(w, "  "+st.muted.Render("ignored: "+strings.Join(report.Ignored, ", ")))
	}
	fmt.Fprintf(w, "%d live, %d placeholders, %d skipped\n", report.Live, report.Placeholders, report.Skipped)
}
