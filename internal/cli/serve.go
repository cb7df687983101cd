package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/agentdeck/internal/app"
	"github.com/dshills/agentdeck/internal/dashboard"
)

func (c *cli) newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the component dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withApp(cmd, func(a *app.App) error {
				return serve(ctx, cmd, a, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from [server] addr)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, a *app.App, addr string) error {
	if addr == "" {
		addr = a.Config().Server.Addr
	}
	srv, err := dashboard.New(a)
	if err != nil {
		return err
	}

	if err := a.WatchConfig(ctx); err != nil {
		a.Logger().Warn("not watching %s: %v", a.Config().Path(), err)
	}

	st := newStyles(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.title.Render("agentdeck dashboard on"), addr)
	return srv.Run(ctx, addr)
}
