package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billing-relay/backend/internal/config"
	"billing-relay/backend/internal/handlers"
	"billing-relay/backend/internal/metrics"
	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/services"
	"billing-relay/backend/internal/store"
	"billing-relay/backend/internal/tracing"
	"billing-relay/backend/pkg/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func runServe(ctx context.Context) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName: serviceName,
		Environment: cfg.AppEnv,
		PrettyPrint: cfg.AppEnv == "development",
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	st, err := store.Open(cfg.StoreURL, cfg.StoreServiceKey)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("store close error: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New("billing_relay", reg)
	if err != nil {
		return err
	}

	// Left nil when unconfigured so services report ErrNotConfigured.
	var client processor.Client
	if sc, err := processor.NewStripeClient(cfg.StripeSecretKey, rec); err == nil {
		client = sc
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	deps := handlers.Deps{
		Checkout: services.NewCheckoutService(client, services.DefaultPriceTable(cfg.PriceIDs), services.CheckoutDefaults{
			SuccessURL:      cfg.CheckoutSuccessURL,
			CancelURL:       cfg.CheckoutCancelURL,
			PortalReturnURL: cfg.PortalReturnURL,
		}),
		Webhooks: services.NewWebhookService(processor.NewStripeVerifier(cfg.StripeWebhookSecret), st,
			services.WithNotifier(handlers.NewSubscriptionFeed(hub)),
			services.WithMetrics(rec),
			services.WithHandlerTimeout(cfg.WebhookHandlerTimeout),
		),
		Verify:      services.NewVerifyService(client, st),
		Accounts:    services.NewAccountService(st),
		Hub:         hub,
		StoreDriver: st.Driver(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	r := handlers.NewRouter(cfg, serviceName, deps)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.ServerWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s store=%s stripe_configured=%t webhook_configured=%t",
			cfg.Addr, st.Driver(), cfg.StripeConfigured(), cfg.WebhookConfigured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %v", sig)
	case serveErr = <-errCh:
		log.Printf("server error: %v", serveErr)
	case <-ctx.Done():
	}

	hub.Stop()

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	return serveErr
}
