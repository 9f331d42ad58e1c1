package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"givora.org/internal/admin"
	"givora.org/internal/cache"
	"givora.org/internal/config"
	"givora.org/internal/httpapi"
	"givora.org/internal/kyc"
	"givora.org/internal/obs"
	"givora.org/internal/provider"
	"givora.org/internal/ratelimit"
	"givora.org/internal/risk"
	"givora.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := config.Load()

	if cfg.PGDSN == "" {
		log.Fatal("missing GIVORA_PG_DSN")
	}
	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	// Rate-limit counters live in Redis so windows survive restarts; without
	// Redis the in-memory cache keeps the service functional.
	redisClient := config.NewRedisClient(cfg)
	var counterCache cache.Cache
	if redisClient != nil {
		counterCache = cache.NewRedis(redisClient)
	} else {
		log.Print("redis unavailable, using in-memory cache")
		counterCache = cache.NewMemory()
	}

	limiter := ratelimit.New(counterCache)
	authenticator := admin.NewAuthenticator(store, limiter,
		admin.WithVerifyLimit(cfg.AdminVerifyMax, cfg.AdminVerifyWindow))

	var verifier risk.VerificationProvider
	if cfg.ProviderBaseURL != "" && cfg.ProviderSecret != "" {
		client, err := provider.New(cfg.ProviderBaseURL, cfg.ProviderSecret,
			provider.WithTimeout(cfg.ProviderTimeout))
		if err != nil {
			log.Fatalf("verification provider: %v", err)
		}
		verifier = providerAdapter{client}
	} else {
		// Scoring still works; every user takes the unverified factor.
		log.Print("verification provider not configured, scoring treats all users as unverified")
		verifier = unconfiguredProvider{}
	}

	engine := risk.NewEngine(store, store, verifier,
		risk.WithHighRiskCountries(cfg.HighRiskCountries))
	kycService := kyc.NewService(store, store, engine)

	api := httpapi.New(httpapi.Config{
		Ready:           httpapi.ReadyProbe{DB: store.DB(), Redis: redisClient},
		Version:         version,
		Auth:            authenticator,
		KYC:             kycService,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		IPRatePerSecond: cfg.IPRatePerSecond,
		IPBurst:         cfg.IPRateBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting givora-admin-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Println("Stopped")
}

// providerAdapter narrows the HTTP client to the shape the scoring engine
// consumes.
type providerAdapter struct {
	client *provider.Client
}

func (p providerAdapter) GetVerificationStatus(ctx context.Context, userID string) (risk.VerificationStatus, error) {
	status, err := p.client.GetVerificationStatus(ctx, userID)
	if err != nil {
		return risk.VerificationStatus{}, err
	}
	return risk.VerificationStatus{Success: status.Success, Verified: status.Verified}, nil
}

type unconfiguredProvider struct{}

func (unconfiguredProvider) GetVerificationStatus(context.Context, string) (risk.VerificationStatus, error) {
	return risk.VerificationStatus{}, provider.ErrUnavailable
}
