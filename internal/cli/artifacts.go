package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/agentdeck/internal/app"
)

func (c *cli) newArtifactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Browse files generated by components",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored artifacts, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				w := cmd.OutOrStdout()
				st := newStyles(w)
				entries, err := a.Artifacts().List()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(w, st.muted.Render("No artifacts in "+a.Artifacts().Dir()))
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %s  %s  %d bytes  %s\n",
						e.Created.Local().Format("2006-01-02 15:04"),
						st.name.Render(e.Component),
						e.Type,
						e.Size,
						filepath.Join(a.Artifacts().Dir(), e.File))
					if e.Remark != "" {
						fmt.Fprintln(w, "    "+st.muted.Render(e.Remark))
					}
				}
				return nil
			})
		},
	})
	return cmd
}
