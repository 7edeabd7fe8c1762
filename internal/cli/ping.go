package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/routedb/internal/keepalive"
)

// errPingURLRequired is returned when no ping target is configured.
var errPingURLRequired = errors.New("ping url is required (set --url, MIGRATE_PING_URL, or ping_url in config)")

var pingCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "ping",
	Short: "Keep a hosted service awake by requesting it periodically",
	Long: `Send a GET request to a URL on a fixed interval and log the status and
latency of each response. Failures are logged and the next ping runs on
schedule; there is no retry or backoff. Stops on interrupt.`,
	RunE: runPing,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	pingCmd.Flags().String("url", "", "URL to request (overrides ping_url)")
	pingCmd.Flags().Duration("interval", 0, "time between requests (overrides ping_interval)")
	pingCmd.Flags().Bool("once", false, "send a single request and exit with its result")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	target := cfg.PingURL
	if cmd.Flags().Changed("url") {
		target, _ = cmd.Flags().GetString("url")
	}

	if target == "" {
		return errPingURLRequired
	}

	interval := cfg.PingInterval
	if cmd.Flags().Changed("interval") {
		interval, _ = cmd.Flags().GetDuration("interval")
	}

	out := cmd.OutOrStdout()

	p, err := keepalive.New(target, interval,
		keepalive.WithLogger(logger()),
		keepalive.WithPingCallback(func(res keepalive.Result, err error) {
			if err != nil {
				fmt.Fprintf(out, "ping %s: %v\n", target, err)

				return
			}

			fmt.Fprintf(out, "ping %s: %d in %s\n", target, res.Status, res.Latency)
		}),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if once, _ := cmd.Flags().GetBool("once"); once {
		_, err := p.Ping(ctx)

		return err
	}

	return p.Run(ctx)
}
