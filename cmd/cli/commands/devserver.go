package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meltingprovince/virtualset/internal/api/v1/routes"
	"github.com/meltingprovince/virtualset/internal/app"
	"github.com/meltingprovince/virtualset/internal/logger"
	"github.com/meltingprovince/virtualset/internal/simulator"
)

// dev-server flag names
const (
	flagAddr         = "addr"
	flagStep         = "step"
	flagAssetBaseURL = "asset-base-url"
	flagRequireAuth  = "require-auth"
)

// shutdownTimeout bounds graceful shutdown of the dev server
const shutdownTimeout = 10 * time.Second

func init() {
	devServerCmd.Flags().String(flagAddr, ":"+routes.DefaultPort, "Listen address")
	devServerCmd.Flags().Float64(flagStep, simulator.DefaultStep, "Progress added per status poll")
	devServerCmd.Flags().String(flagAssetBaseURL, simulator.DefaultAssetBaseURL, "Base URL of the generated asset links")
	devServerCmd.Flags().Bool(flagRequireAuth, true, "Reject requests without an auth token")
}

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a local webhook that simulates generation jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString(flagAddr)
		step, _ := cmd.Flags().GetFloat64(flagStep)
		assetBaseURL, _ := cmd.Flags().GetString(flagAssetBaseURL)
		requireAuth, _ := cmd.Flags().GetBool(flagRequireAuth)

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.ErrOrStderr(), "Dev webhook listening on http://%s\n", ln.Addr())
		return serveDevWebhook(ctx, ln, app.Options{
			Simulator:   simulator.New(simulator.Options{Step: step, AssetBaseURL: assetBaseURL}),
			RequireAuth: requireAuth,
		})
	},
}

// serveDevWebhook serves the webhook on ln until ctx is done, then shuts down gracefully
func serveDevWebhook(ctx context.Context, ln net.Listener, opts app.Options) error {
	a := app.NewApp(opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Listener(ln); err != nil {
			return fmt.Errorf("dev server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down dev webhook")
		if err := a.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// GetDevServerCmd returns the dev-server command
func GetDevServerCmd() *cobra.Command {
	return devServerCmd
}
