// Package main wires together the restaurant scraper service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/viberoam/restaurant-scraper/internal/api"
	"github.com/viberoam/restaurant-scraper/internal/assemble"
	"github.com/viberoam/restaurant-scraper/internal/catalog"
	"github.com/viberoam/restaurant-scraper/internal/clock/system"
	"github.com/viberoam/restaurant-scraper/internal/config"
	"github.com/viberoam/restaurant-scraper/internal/fetch"
	"github.com/viberoam/restaurant-scraper/internal/fetch/headless"
	historymem "github.com/viberoam/restaurant-scraper/internal/history/memory"
	historynoop "github.com/viberoam/restaurant-scraper/internal/history/noop"
	historypg "github.com/viberoam/restaurant-scraper/internal/history/postgres"
	"github.com/viberoam/restaurant-scraper/internal/id/uuid"
	"github.com/viberoam/restaurant-scraper/internal/logging"
	"github.com/viberoam/restaurant-scraper/internal/pipeline"
	pubmem "github.com/viberoam/restaurant-scraper/internal/publisher/memory"
	pubnoop "github.com/viberoam/restaurant-scraper/internal/publisher/noop"
	pubgcp "github.com/viberoam/restaurant-scraper/internal/publisher/pubsub"
	"github.com/viberoam/restaurant-scraper/internal/scrape"
	storagegcs "github.com/viberoam/restaurant-scraper/internal/storage/gcs"
	storagelocal "github.com/viberoam/restaurant-scraper/internal/storage/local"
	storagemem "github.com/viberoam/restaurant-scraper/internal/storage/memory"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	once := flag.Bool("once", false, "Run one scrape and exit instead of serving HTTP")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}
	history, closeHistory, err := buildHistoryStore(ctx, cfg)
	if err != nil {
		logger.Fatal("history store init failed", zap.Error(err))
	}
	defer closeHistory()
	publisher, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	selector, err := catalog.New(catalog.Config{
		Endpoint:       cfg.Catalog.Endpoint,
		UpdateEndpoint: cfg.Catalog.UpdateEndpoint,
		Timeout:        cfg.CatalogTimeout(),
		UserAgent:      cfg.Fetch.UserAgent,
		Fallback: scrape.Target{
			ID:      cfg.Catalog.FallbackID,
			Name:    cfg.Catalog.FallbackName,
			URL:     cfg.Catalog.FallbackURL,
			City:    cfg.Catalog.FallbackCity,
			Country: cfg.Catalog.FallbackCountry,
		},
	}, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("catalog client init failed", zap.Error(err))
	}

	pageFetcher := fetch.NewColly(fetch.CollyConfig{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})
	// renderer stays nil when headless is disabled; the fetch client then
	// skips the render path entirely.
	var renderer scrape.PageFetcher
	if cfg.Headless.Enabled {
		chromeRenderer, err := headless.NewChromedp(headless.Config{
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless renderer init failed", zap.Error(err))
		} else {
			defer chromeRenderer.Close()
			renderer = chromeRenderer
		}
	}
	detector := fetch.NewRenderDetector(cfg.Headless.MinHTMLBytes, cfg.Headless.ShellKeywords, cfg.Headless.ContentSelects)
	fetcher := fetch.NewClient(pageFetcher, renderer, detector, fetch.Config{
		MaxRetries: cfg.Fetch.MaxRetries,
		BaseDelay:  time.Duration(cfg.Fetch.BackoffInitialMs) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.Fetch.BackoffMaxMs) * time.Millisecond,
	}, logger.Named("fetch"))

	persister := assemble.NewPersister(blobStore, cfg.Storage.Prefix, cfg.Storage.ContentType, logger.Named("persist"))
	metrics := pipeline.NewMetrics()

	pipe := pipeline.New(
		selector,
		fetcher,
		persister,
		history,
		publisher,
		system.New(),
		uuid.New(),
		metrics,
		logger.Named("pipeline"),
		pipeline.Config{Topic: cfg.PubSub.TopicName},
	)

	if *once {
		outcome := pipe.Run(ctx)
		out, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			logger.Fatal("marshal outcome failed", zap.Error(err))
		}
		fmt.Println(string(out))
		if !outcome.Success {
			os.Exit(1)
		}
		return
	}

	apiServer := api.NewServer(pipe, metrics, logger.Named("api"), cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (scrape.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return storagegcs.New(client, storagegcs.Config{Bucket: cfg.Storage.GCSBucket})
	case "local":
		return storagelocal.New(storagelocal.Config{BaseDir: cfg.Storage.LocalDir})
	case "memory":
		return storagemem.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildHistoryStore(ctx context.Context, cfg config.Config) (scrape.HistoryStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		store, err := historypg.NewStore(ctx, historypg.StoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return historymem.NewStore(), func() {}, nil
	case "noop":
		return historynoop.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (scrape.Publisher, func(), error) {
	switch cfg.PubSub.Provider {
	case "pubsub":
		client, err := gcpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("create pubsub client: %w", err)
		}
		pub := pubgcp.New(client)
		return pub, func() {
			if err := pub.Close(); err != nil {
				zap.L().Warn("pubsub close failed", zap.Error(err))
			}
		}, nil
	case "memory":
		return pubmem.New(), func() {}, nil
	case "noop":
		return pubnoop.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown pubsub provider %q", cfg.PubSub.Provider)
	}
}
