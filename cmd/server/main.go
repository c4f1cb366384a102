package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	kychandler "dkyc/internal/kyc/handler"
	"dkyc/internal/kyc/ledger"
	"dkyc/internal/kyc/metrics"
	"dkyc/internal/kyc/service"
	"dkyc/internal/kyc/storage"
	"dkyc/internal/kyc/tracer"
	"dkyc/internal/kyc/workflow"
	"dkyc/internal/platform/config"
	"dkyc/internal/platform/health"
	"dkyc/internal/platform/logger"
	httptransport "dkyc/internal/transport/http"
	"dkyc/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/kyc.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dkyc-gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing dkyc gateway",
		"addr", cfg.Server.Addr,
		"env", cfg.Server.Environment,
		"version", health.Version,
		"bucket_configured", cfg.Storage.Bucket != "",
		"fee_from_contract", cfg.Ledger.FeeFromContract,
		"update_requires_existing", cfg.Ledger.UpdateRequiresExisting,
		"journal", cfg.Journal.Path != "",
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	kycMetrics := metrics.New(reg)
	tr := tracer.NewOTel()

	uploads, downloads, err := buildBrokers(ctx, cfg.Storage, log, tr)
	if err != nil {
		return err
	}

	contract, eth, err := ledger.Dial(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress, cfg.Ledger.PrivateKey)
	if err != nil {
		return err
	}
	defer eth.Close()
	log.Info("ledger connected", "contract", cfg.Ledger.ContractAddress, "signer", contract.From().Hex())

	fee, err := cfg.Ledger.Fee()
	if err != nil {
		return err
	}
	gateway := ledger.New(contract,
		ledger.WithLogger(log),
		ledger.WithTracer(tr),
		ledger.WithMetrics(kycMetrics),
		ledger.WithBreaker(circuit.New("ledger", circuit.WithFailureThreshold(cfg.Ledger.BreakerThreshold))),
		ledger.WithFixedFee(fee),
		ledger.WithFeeFromContract(cfg.Ledger.FeeFromContract),
		ledger.WithConfirmTimeout(cfg.Ledger.ConfirmTimeout),
	)

	trackerOpts := []workflow.Option{workflow.WithLogger(log), workflow.WithMetrics(kycMetrics)}
	var handlerOpts []kychandler.HandlerOption
	if cfg.Journal.Path != "" {
		journal, err := workflow.OpenBoltJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				log.Error("failed to close workflow journal", "error", err)
			}
		}()
		trackerOpts = append(trackerOpts, workflow.WithJournal(journal))
		handlerOpts = append(handlerOpts, kychandler.WithWorkflows(journal))
		log.Info("workflow journal opened", "path", cfg.Journal.Path)
	}

	svc := service.New(gateway, uploads, downloads,
		service.WithLogger(log),
		service.WithTracer(tr),
		service.WithMetrics(kycMetrics),
		service.WithTracker(workflow.NewTracker(trackerOpts...)),
		service.WithUpdateRequiresExisting(cfg.Ledger.UpdateRequiresExisting),
	)

	healthHandler := health.New(cfg.Server.Environment)
	healthHandler.RegisterCheck("ledger", gateway.Check)
	healthHandler.RegisterCheck("storage", func(context.Context) error {
		if !uploads.Configured() {
			return errors.New("KYC_BUCKET is not set")
		}
		return nil
	})

	proxies, err := cfg.Server.Proxies()
	if err != nil {
		return err
	}
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Registry:       reg,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TrustedProxies: proxies,
	}, healthHandler, kychandler.New(svc, log, handlerOpts...))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func buildBrokers(ctx context.Context, cfg config.Storage, log *slog.Logger, tr tracer.Tracer) (*storage.UploadBroker, *storage.DownloadBroker, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}
	presigner := s3.NewPresignClient(s3.NewFromConfig(awsCfg))
	brokerCfg := storage.Config{
		Bucket: cfg.Bucket,
		Prefix: cfg.UploadPrefix,
		TTL:    cfg.PresignTTL,
	}
	opts := []storage.Option{storage.WithLogger(log), storage.WithTracer(tr)}
	return storage.NewUploadBroker(presigner, brokerCfg, opts...),
		storage.NewDownloadBroker(presigner, brokerCfg, opts...),
		nil
}
