// Package cli is the usersctl operator command tree.
package cli

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-firestore-crud/config"
	"github.com/oksasatya/go-firestore-crud/internal/container"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

type options struct {
	configFile string
	verbose    bool
	timeout    time.Duration
}

func (o *options) logger(cfg *config.Config) *logrus.Logger {
	if !o.verbose {
		return helpers.NewNopLogger()
	}
	if cfg == nil {
		return helpers.NewLogger("usersctl", "development")
	}
	return helpers.NewLogger(cfg.AppName, cfg.Env)
}

// connect loads configuration and builds a Firestore-backed container.
func (o *options) connect(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg, o.logger(cfg))
}

// NewRootCommand builds the usersctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "usersctl",
		Short:         "Operate the Firestore user store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "properties file (default $APP_CONFIG_FILE or application.properties)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stdout")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for the command")

	root.AddCommand(
		newPingCommand(opts),
		newSeedCommand(opts),
		newDemoCommand(opts),
		newStatsCommand(opts),
	)
	return root
}

func withTimeout(cmd *cobra.Command, opts *options) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, opts.timeout)
}
