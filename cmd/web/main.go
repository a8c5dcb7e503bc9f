package main

import (
	"context"
	"fmt"
	"log"

	"github.com/property-insights/internal/cache"
	"github.com/property-insights/internal/config"
	"github.com/property-insights/internal/metrics"
	"github.com/property-insights/internal/web"
)

func main() {
	fmt.Println("=== Property Insights Web Interface ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Sources.DemographicsTable != "" {
		log.Printf("DEMOGRAPHICS_TABLE is ignored by the web server, serving %s", cfg.Sources.DemographicsPath)
	}

	opts := cfg.PipelineOptions()
	if err := opts.Validate(); err != nil {
		log.Fatalf("Invalid match or geocode settings: %v", err)
	}

	store, err := cache.New(context.Background(), cfg.Cache.Backend, cache.RedisOptions{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		Prefix:   "insights:",
	})
	if err != nil {
		log.Fatalf("Failed to set up %s cache: %v", cfg.Cache.Backend, err)
	}
	defer store.Close()

	m := metrics.New()
	dataset := web.NewDataset(cache.NewMemo(store, cfg.Cache.TTL), cfg.DataFiles(), opts, m)

	// Warm the cache so a bad source fails at startup rather than on the first request
	snap, err := dataset.Snapshot(context.Background())
	if err != nil {
		log.Fatalf("Failed to run the pipeline: %v", err)
	}

	webConfig := web.ConfigFrom(cfg)

	fmt.Printf("Listings:     %s\n", cfg.Sources.ListingsPath)
	fmt.Printf("Demographics: %s\n", cfg.Sources.DemographicsPath)
	fmt.Printf("Cache:        %s (ttl %v)\n", cfg.Cache.Backend, cfg.Cache.TTL)
	fmt.Printf("Run %s: %d properties\n", snap.Result.RunID, len(snap.Result.Properties))
	fmt.Println("\nFeatures enabled:")
	fmt.Printf("  • API key:    %v\n", webConfig.APIKey != "")
	fmt.Printf("  • Rate limit: %v req/s\n", webConfig.RateLimit)
	fmt.Println()

	server := web.NewServer(webConfig, dataset, m)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
