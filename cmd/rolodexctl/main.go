// Rolodexctl drives a running rolodex server from the command line, doing
// what the landing page does: load the people file, query it by name, and
// clear both backends.
package main // import "github.com/nicolagi/rolodex/cmd/rolodexctl"

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/nicolagi/rolodex/client"
	"github.com/nicolagi/rolodex/page"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	address string
	source  string
	timeout time.Duration
	debug   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		log.WithField("err", err).Error("Command failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "rolodexctl",
		Short:         "Load, query and clear people stored by a rolodex server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if f.debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&f.address, "address", "http://localhost:4321", "base URL of the rolodex server")
	root.PersistentFlags().StringVar(&f.source, "source", "https://s3-us-west-2.amazonaws.com/css490/input.txt", "people file to load")
	root.PersistentFlags().DurationVar(&f.timeout, "timeout", time.Minute, "timeout for each command")
	root.PersistentFlags().BoolVar(&f.debug, "debug", false, "enable debug logging")

	controller := func() *page.Controller {
		return page.NewController(client.New(client.WithAddress(f.address)), f.source)
	}
	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), f.timeout)
	}

	root.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Load the people file into both backends and print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			c := controller()
			if err := c.Load(ctx); err != nil {
				return err
			}
			return c.View().Render(out)
		},
	})

	var lastName, firstName string
	query := &cobra.Command{
		Use:   "query",
		Short: "Print the records matching a last and/or first name",
		Long: `Print the records matching a last and/or first name.

Examples:
  rolodexctl query --last Smith
  rolodexctl query --last Smith --first John`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			cl := client.New(client.WithAddress(f.address))
			all, err := cl.AllRecords(ctx)
			if err != nil {
				return err
			}
			c := page.NewController(cl, f.source)
			c.View().Show(all)
			if err := c.Filter(ctx, lastName, firstName); err != nil {
				return err
			}
			return c.View().Render(out)
		},
	}
	query.Flags().StringVar(&lastName, "last", "", "last name")
	query.Flags().StringVar(&firstName, "first", "", "first name")
	root.AddCommand(query)

	root.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all blobs and all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			return controller().Clear(ctx)
		},
	})

	return root
}
