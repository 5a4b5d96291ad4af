// Package route implements the one-shot route query command.
package route

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/conf"
	"github.com/joyvchen/birdride/internal/ebird"
	"github.com/joyvchen/birdride/internal/httpclient"
	"github.com/joyvchen/birdride/internal/imageprovider"
	"github.com/joyvchen/birdride/internal/route"
)

// Command creates the route command for one-shot queries.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		pathArg    string
		within     float64
		order      string
		asJSON     bool
		withImages bool
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "List bird sightings along a route",
		Long:  `Query recent and notable sightings around sample points of a route given as "lat,lon;lat,lon;..." waypoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runRoute(ctx, settings, pathArg, within, order, asJSON, withImages)
		},
	}

	cmd.Flags().StringVar(&pathArg, "path", "", `Route waypoints as "lat,lon;lat,lon;..."`)
	cmd.Flags().IntVar(&settings.Route.BackDays, "days", viper.GetInt("route.backdays"), "Lookback window in days")
	cmd.Flags().Float64Var(&settings.Route.RadiusKm, "radius", viper.GetFloat64("route.radiuskm"), "Search radius in kilometers around each sample point")
	cmd.Flags().IntVar(&settings.Route.MaxPoints, "maxpoints", viper.GetInt("route.maxpoints"), "Maximum number of sample points along the route")
	cmd.Flags().Float64Var(&within, "within", viper.GetFloat64("route.proximitymiles"), "Only keep species within this many miles of the route (0 disables)")
	cmd.Flags().StringVar(&order, "order", string(aggregator.OrderRecency), "Result order: recency or rarity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&withImages, "images", false, "Attach species photos to the results")
	_ = cmd.MarkFlagRequired("path")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		cmd.PrintErrf("error binding flags: %v\n", err)
	}

	return cmd
}

func runRoute(ctx context.Context, settings *conf.Settings, pathArg string, within float64, order string, asJSON, withImages bool) error {
	r, err := route.ParsePath(pathArg)
	if err != nil {
		return err
	}

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

	opts := aggregator.Options{
		BackDays:  settings.Route.BackDays,
		RadiusKm:  settings.Route.RadiusKm,
		MaxPoints: settings.Route.MaxPoints,
		Order:     aggregator.Order(order),
	}
	if within > 0 {
		opts.WithinMiles = &within
	}

	agg := aggregator.New(aggregator.NewEBirdSource(client))
	result, err := agg.AlongRoute(ctx, r, opts)
	if err != nil {
		return err
	}

	if withImages {
		images := imageprovider.NewCache(imageprovider.NewAviCommonsProvider(httpclient.New(nil)))
		images.EnrichAll(ctx, result.Species)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result, r)
	return nil
}

func printResult(result *aggregator.Result, r route.Route) {
	fmt.Printf("Route: %.1f miles, %d sample points, %d/%d queries succeeded\n",
		r.LengthMiles(), result.Stats.SamplePoints,
		result.Stats.Queries-result.Stats.Failed, result.Stats.Queries)

	if result.Incomplete() {
		fmt.Println("No data: every source query failed.")
		return
	}
	if len(result.Species) == 0 {
		fmt.Println("No sightings reported along this route.")
		return
	}

	for i := range result.Species {
		s := &result.Species[i]
		marker := " "
		if s.Rarity == aggregator.RarityRare {
			marker = "*"
		}
		fmt.Printf("%s %-28s %-24s mile %5.1f  %4.1f mi off route  %s\n",
			marker, truncate(s.CommonName, 28), s.ScientificName,
			s.RouteMile, s.DistanceMiles, s.Observed.Format(time.DateTime))
		if s.Image != nil {
			fmt.Printf("    photo: %s (%s)\n", s.Image.URL, s.Image.Attribution)
		}
	}
	fmt.Printf("%d species, * = rare\n", len(result.Species))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
