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

	"github.com/tilakarasunh/K8s-health-guardian/internal/analyzer"
	"github.com/tilakarasunh/K8s-health-guardian/internal/api"
	"github.com/tilakarasunh/K8s-health-guardian/internal/collector"
	"github.com/tilakarasunh/K8s-health-guardian/internal/config"
	"github.com/tilakarasunh/K8s-health-guardian/internal/exporter"
	"github.com/tilakarasunh/K8s-health-guardian/internal/forwarder"
	"github.com/tilakarasunh/K8s-health-guardian/internal/kube"
	"github.com/tilakarasunh/K8s-health-guardian/internal/logging"
	"github.com/tilakarasunh/K8s-health-guardian/internal/report"
	"github.com/tilakarasunh/K8s-health-guardian/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	kubeClient, err := kube.NewClient(cfg.ClusterName, cfg.KubeconfigPath)
	if err != nil {
		logger.Error("failed to create kube client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	clusterName := cfg.ClusterName
	if clusterName == "" || clusterName == "kubernetes" {
		detectCtx, cancelDetect := context.WithTimeout(ctx, 10*time.Second)
		if detected, err := kube.DetectClusterName(detectCtx, kubeClient.Kubernetes); err == nil && detected != "" {
			clusterName = detected
			kubeClient.ClusterName = detected
			logger.Info("detected cluster name", slog.String("clusterName", detected))
		} else if err != nil {
			logger.Warn("failed to detect cluster name", slog.String("error", err.Error()))
		}
		cancelDetect()
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		logger.Error("failed to build report renderer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var sender *forwarder.Sender
	if cfg.Report.WebhookURL != "" {
		sender = forwarder.NewSender(cfg.Report.WebhookURL, cfg.Report.AuthToken, cfg.Report.Timeout, cfg.Report.Gzip)
	}

	fallback := analyzer.NewFallbackAnalyzer(analyzer.Thresholds{
		FailedPodPenalty:    cfg.Thresholds.FailedPodPenalty,
		PendingPodPenalty:   cfg.Thresholds.PendingPodPenalty,
		PendingPodTolerance: cfg.Thresholds.PendingPodTolerance,
		CPUUsagePercent:     cfg.Thresholds.CPUUsagePercent,
		MemoryUsagePercent:  cfg.Thresholds.MemoryUsagePercent,
	})

	p := &pipeline{
		collector: collector.NewHealthCollector(kubeClient, collector.Config{
			EventWindow:        cfg.EventWindow(),
			HighPodCPUMilli:    cfg.Thresholds.HighPodCPUMilli,
			HighPodMemoryBytes: cfg.Thresholds.HighPodMemoryBytes,
		}, logger),
		summarizer: analyzer.NewSummarizer(analyzer.SummarizerConfig{
			EventCap:     cfg.Summary.EventCap,
			FailedPodCap: cfg.Summary.FailedPodCap,
		}),
		remote: analyzer.NewClient(analyzer.ClientConfig{
			Endpoint:   cfg.Analyzer.Endpoint,
			APIKey:     cfg.Analyzer.APIKey,
			Deployment: cfg.Analyzer.Deployment,
			APIVersion: cfg.Analyzer.APIVersion,
			Timeout:    cfg.Analyzer.Timeout,
		}, logger),
		normalizer:  analyzer.NewNormalizer(fallback, logger),
		renderer:    renderer,
		sender:      sender,
		cfg:         cfg,
		clusterName: clusterName,
		logger:      logger,
	}

	logger.Info("starting health guardian",
		slog.String("version", version.Value()),
		slog.String("clusterName", clusterName),
		slog.String("mode", cfg.Mode))

	switch cfg.Mode {
	case "serve":
		if err := p.runServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		if err := p.runOnceAndDeliver(ctx); err != nil {
			logger.Error("health check run failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("health check completed")
	}
}

type pipeline struct {
	collector   *collector.HealthCollector
	summarizer  *analyzer.Summarizer
	remote      *analyzer.Client
	normalizer  *analyzer.Normalizer
	renderer    *report.Renderer
	sender      *forwarder.Sender
	cfg         config.Config
	clusterName string
	logger      *slog.Logger
}

// assess runs one full collection and analysis pass.
func (p *pipeline) assess(ctx context.Context) (api.Result, error) {
	snap, err := p.collector.Collect(ctx)
	if err != nil {
		return api.Result{}, fmt.Errorf("collect snapshot: %w", err)
	}
	analysisContext := p.summarizer.Summarize(snap)
	outcome := p.remote.Analyze(ctx, analysisContext)
	assessment := p.normalizer.Normalize(outcome, snap)
	return api.Result{
		Snapshot:    snap,
		Assessment:  assessment,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// runOnceAndDeliver is the CronJob entrypoint: one assessment, one report.
// An undeliverable report fails the run.
func (p *pipeline) runOnceAndDeliver(ctx context.Context) error {
	result, err := p.assess(ctx)
	if err != nil {
		return err
	}
	if p.sender == nil {
		p.logger.Warn("report webhook not configured; skipping delivery")
		return nil
	}
	return p.deliver(ctx, result)
}

func (p *pipeline) deliver(ctx context.Context, result api.Result) error {
	html, err := p.renderer.Render(result.Snapshot, result.Assessment)
	if err != nil {
		return err
	}
	envelope := forwarder.ReportEnvelope{
		ClusterName: p.clusterName,
		Recipients:  p.cfg.Report.Recipients,
		Subject:     reportSubject(p.clusterName, result.Assessment.HealthScore),
		HTML:        html,
		HealthScore: result.Assessment.HealthScore,
		Source:      result.Assessment.Source,
		Version:     version.Value(),
		Timestamp:   result.CompletedAt,
	}
	return deliverWithRetry(ctx, p.sender, envelope, p.cfg.Report.MaxRetries, p.cfg.Report.Backoff, p.logger)
}

// runServe keeps assessing on the configured interval and exposes the latest
// result over HTTP and Prometheus.
func (p *pipeline) runServe(ctx context.Context) error {
	store := api.NewStore()
	prom := exporter.NewPrometheusExporter()

	go p.assessLoop(ctx, store, prom)

	mux := http.NewServeMux()
	api.NewHandler(p.clusterName, version.Value(), store).Register(mux)
	mux.Handle("/metrics", prom.Handler())

	return exporter.NewServer(p.cfg.ListenAddr, mux, p.logger).Run(ctx)
}

func (p *pipeline) assessLoop(ctx context.Context, store *api.Store, prom *exporter.PrometheusExporter) {
	ticker := time.NewTicker(p.cfg.Interval())
	defer ticker.Stop()

	for {
		result, err := p.assess(ctx)
		if err != nil {
			p.logger.Warn("assessment refresh failed", slog.String("error", err.Error()))
		} else {
			store.Update(result)
			prom.Update(result)
			if p.sender != nil {
				if err := p.deliver(ctx, result); err != nil {
					p.logger.Warn("report delivery failed", slog.String("error", err.Error()))
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// deliverWithRetry makes the initial attempt plus up to maxRetries more,
// sleeping backoff between attempts. Context cancellation stops retrying.
func deliverWithRetry(ctx context.Context, sender *forwarder.Sender, envelope forwarder.ReportEnvelope, maxRetries int, backoff time.Duration, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying report delivery",
				slog.Int("attempt", attempt+1),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if lastErr = sender.Send(ctx, envelope); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("deliver report: %w", lastErr)
}

func reportSubject(clusterName string, score int) string {
	return fmt.Sprintf("Cluster Health Report: %s (score %d/100)", clusterName, score)
}
