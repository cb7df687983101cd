package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/agentdeck/internal/app"
	"github.com/dshills/agentdeck/internal/config"
)

func (c *cli) newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change settings",
	}
	cmd.AddCommand(c.newSettingsListCommand())
	cmd.AddCommand(c.newSettingsGetCommand())
	cmd.AddCommand(c.newSettingsSetCommand())
	return cmd
}

func (c *cli) newSettingsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered settings with their values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				w := cmd.OutOrStdout()
				st := newStyles(w)
				for _, e := range a.Config().Entries() {
					value := e.Value
					if value == "" {
						value = st.muted.Render("(unset)")
					}
					fmt.Fprintf(w, "%s = %s %s\n", st.name.Render(e.Key), value, st.muted.Render("["+e.Source+"]"))
					if e.Description != "" {
						fmt.Fprintln(w, "    "+st.muted.Render(e.Description))
					}
					if len(e.Options) > 0 {
						fmt.Fprintln(w, "    "+st.muted.Render("options: "+strings.Join(e.Options, ", ")))
					}
				}
				if extra := a.Config().Unregistered(); len(extra) > 0 {
					fmt.Fprintln(w, st.warning.Render("unregistered: "+strings.Join(extra, ", ")))
				}
				return nil
			})
		},
	}
}

func (c *cli) newSettingsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				key := args[0]
				item, ok := a.Config().Item(key)
				if !ok {
					return fmt.Errorf("%w: %s", config.ErrUnknownSetting, key)
				}
				value := a.Config().Get(key)
				if item.Secret() {
					value = config.Mask(value)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func (c *cli) newSettingsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Change a setting and save the config file",
		Long: `Change a setting and save the config file.

When the value is omitted it is read from stdin. Password settings are read
without echo when stdin is a terminal.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				key := args[0]
				item, ok := a.Config().Item(key)
				if !ok {
					return fmt.Errorf("%w: %s", config.ErrUnknownSetting, key)
				}

				var value string
				if len(args) == 2 {
					value = args[1]
				} else {
					v, err := c.readValue(cmd.ErrOrStderr(), item)
					if err != nil {
						return err
					}
					value = v
				}

				if err := a.Config().Set(key, value); err != nil {
					return err
				}
				if err := a.Config().Save(); err != nil {
					return err
				}
				shown := value
				if item.Secret() {
					shown = config.Mask(value)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, shown)
				return nil
			})
		},
	}
}

// readValue prompts for a setting value on stdin.
func (c *cli) readValue(prompt io.Writer, item config.Item) (string, error) {
	if f, ok := c.opts.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(prompt, "%s: ", item.Key)
		if item.Secret() {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(prompt)
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", item.Key, err)
			}
			return strings.TrimSpace(string(b)), nil
		}
	}
	line, err := bufio.NewReader(c.opts.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", item.Key, err)
	}
	return strings.TrimSpace(line), nil
}
