package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oksasatya/go-firestore-crud/internal/container"
	"github.com/oksasatya/go-firestore-crud/internal/demo"
)

func newPingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that Firestore answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()
			c, err := opts.connect(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer c.Shutdown(ctx)
			if !c.TestConnection(ctx) {
				return errors.New("firestore did not answer ping")
			}
			cmd.Printf("connected to %s\n", c.Config.RedactedURI())
			return nil
		},
	}
}

func newSeedCommand(opts *options) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()
			c, err := opts.connect(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer c.Shutdown(ctx)
			if reset {
				n, err := c.Service.DeleteAllUsers(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("removed %d users\n", n)
			}
			users, err := c.Service.CreateUsers(ctx, demo.SampleUsers)
			if err != nil {
				return err
			}
			for _, u := range users {
				cmd.Printf("seeded user: id=%s email=%s name=%s\n", u.ID, u.Email, u.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete every user before seeding")
	return cmd
}

func newDemoCommand(opts *options) *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the CRUD walkthrough",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()
			var c *container.Container
			if inMemory {
				c = container.NewInMemory(nil, opts.logger(nil))
			} else {
				var err error
				if c, err = opts.connect(ctx); err != nil {
					return fmt.Errorf("connect: %w", err)
				}
				if !c.TestConnection(ctx) {
					c.Shutdown(ctx)
					return errors.New("firestore did not answer ping")
				}
			}
			defer c.Shutdown(ctx)
			return demo.New(c.Service, cmd.OutOrStdout()).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "use a process-local store instead of Firestore")
	return cmd
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()
			c, err := opts.connect(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer c.Shutdown(ctx)
			st, err := c.Service.GetUserStatistics(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}
