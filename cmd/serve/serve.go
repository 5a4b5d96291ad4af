// Package serve implements the HTTP API server command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/api"
	"github.com/joyvchen/birdride/internal/conf"
	"github.com/joyvchen/birdride/internal/ebird"
	"github.com/joyvchen/birdride/internal/httpclient"
	"github.com/joyvchen/birdride/internal/imageprovider"
	"github.com/joyvchen/birdride/internal/observability/metrics"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		cmd.PrintErrf("error binding flags: %v\n", err)
	}

	return cmd
}

func runServer(ctx context.Context, settings *conf.Settings) error {
	client, err := ebird.NewClient(ebird.Config{
		APIKey:      settings.EBird.APIKey,
		BaseURL:     settings.EBird.BaseURL,
		Timeout:     settings.EBird.RequestTimeout(),
		RateLimitMS: settings.EBird.RateLimitMS,
		Locale:      settings.EBird.Locale,
	})
	if err != nil {
		return err
	}
	defer client.Close()
	client.SetDebug(settings.Debug)

	registry := prometheus.NewRegistry()

	aggMetrics, err := metrics.NewAggregatorMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to create aggregator metrics: %w", err)
	}
	imgMetrics, err := metrics.NewImageProviderMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to create image provider metrics: %w", err)
	}

	agg := aggregator.New(aggregator.NewEBirdSource(client))
	agg.SetMetrics(aggMetrics)

	images := imageprovider.NewCache(imageprovider.NewAviCommonsProvider(httpclient.New(nil)))
	images.SetMetrics(imgMetrics)

	e := echo.New()
	e.HideBanner = true

	controller := api.New(e, agg, images, settings)
	defer controller.Shutdown()
	controller.RegisterMetricsHandler(registry)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
