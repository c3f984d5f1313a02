package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the guardian.
type Config struct {
	ClusterName     string           `yaml:"clusterName"`
	KubeconfigPath  string           `yaml:"kubeconfig"`
	Mode            string           `yaml:"mode"` // once or serve
	IntervalMinutes int              `yaml:"intervalMinutes"`
	ListenAddr      string           `yaml:"listenAddr"`
	LogLevel        string           `yaml:"logLevel"`
	Analyzer        AnalyzerConfig   `yaml:"analyzer"`
	Thresholds      ThresholdsConfig `yaml:"thresholds"`
	Summary         SummaryConfig    `yaml:"summary"`
	Report          ReportConfig     `yaml:"report"`
}

// AnalyzerConfig configures the remote analysis endpoint.
type AnalyzerConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"apiKey"`
	Deployment string        `yaml:"deployment"`
	APIVersion string        `yaml:"apiVersion"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ThresholdsConfig holds the rule-based scoring inputs.
type ThresholdsConfig struct {
	FailedPodPenalty    int     `yaml:"failedPodPenalty"`
	PendingPodPenalty   int     `yaml:"pendingPodPenalty"`
	PendingPodTolerance int     `yaml:"pendingPodTolerance"`
	CPUUsagePercent     float64 `yaml:"cpuUsagePercent"`
	MemoryUsagePercent  float64 `yaml:"memoryUsagePercent"`
	HighPodCPUMilli     int64   `yaml:"highPodCpuMilli"`
	HighPodMemoryBytes  int64   `yaml:"highPodMemoryBytes"`
}

// SummaryConfig bounds the analysis context digest.
type SummaryConfig struct {
	EventCap         int `yaml:"eventCap"`
	FailedPodCap     int `yaml:"failedPodCap"`
	EventWindowHours int `yaml:"eventWindowHours"`
}

// ReportConfig configures report delivery.
type ReportConfig struct {
	WebhookURL string        `yaml:"webhookUrl"`
	AuthToken  string        `yaml:"authToken"`
	Recipients []string      `yaml:"recipients"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"maxRetries"`
	Backoff    time.Duration `yaml:"backoff"`
	Gzip       bool          `yaml:"gzip"`
}

// DefaultConfig returns sane defaults for the guardian.
func DefaultConfig() Config {
	return Config{
		ClusterName:     "kubernetes",
		Mode:            "once",
		IntervalMinutes: 60,
		ListenAddr:      ":8080",
		LogLevel:        "info",
		Analyzer: AnalyzerConfig{
			Deployment: "gpt-4o-mini",
			APIVersion: "2024-02-15-preview",
			Timeout:    30 * time.Second,
		},
		Thresholds: ThresholdsConfig{
			FailedPodPenalty:    10,
			PendingPodPenalty:   2,
			PendingPodTolerance: 0,
			CPUUsagePercent:     80,
			MemoryUsagePercent:  80,
			HighPodCPUMilli:     500,
			HighPodMemoryBytes:  1024 * 1024 * 1024,
		},
		Summary: SummaryConfig{
			EventCap:         20,
			FailedPodCap:     10,
			EventWindowHours: 24,
		},
		Report: ReportConfig{
			Timeout:    15 * time.Second,
			MaxRetries: 1,
			Backoff:    5 * time.Second,
			Gzip:       false,
		},
	}
}

// Interval returns the serve-mode run cadence.
func (c Config) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// EventWindow returns the trailing event collection window.
func (c Config) EventWindow() time.Duration {
	if c.Summary.EventWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Summary.EventWindowHours) * time.Hour
}

// Load builds the configuration by merging defaults, file, environment, and
// flags. Flags are the ultimate override so operators can adjust a scheduled
// job invocation without touching its environment.
func Load() (Config, error) {
	cfg := DefaultConfig()

	configFile := envOrDefault("HEALTHGUARDIAN_CONFIG_FILE", "")

	fs := flag.NewFlagSet("k8s-health-guardian", flag.ContinueOnError)
	fs.StringVar(&configFile, "config", configFile, "Path to YAML config file")
	fs.StringVar(&cfg.ClusterName, "cluster-name", cfg.ClusterName, "Cluster name used in the report")
	fs.StringVar(&cfg.KubeconfigPath, "kubeconfig", cfg.KubeconfigPath, "Path to kubeconfig (optional)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: once (single report) or serve (periodic with HTTP API)")
	fs.IntVar(&cfg.IntervalMinutes, "interval", cfg.IntervalMinutes, "Serve-mode run interval in minutes")
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "Serve-mode HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Analyzer.Endpoint, "analyzer-endpoint", cfg.Analyzer.Endpoint, "Remote analyzer endpoint URL")
	fs.StringVar(&cfg.Analyzer.Deployment, "analyzer-deployment", cfg.Analyzer.Deployment, "Remote analyzer model deployment name")
	fs.DurationVar(&cfg.Analyzer.Timeout, "analyzer-timeout", cfg.Analyzer.Timeout, "Remote analyzer request timeout")
	fs.IntVar(&cfg.Thresholds.FailedPodPenalty, "failed-pod-penalty", cfg.Thresholds.FailedPodPenalty, "Score penalty per failed pod")
	fs.IntVar(&cfg.Thresholds.PendingPodPenalty, "pending-pod-penalty", cfg.Thresholds.PendingPodPenalty, "Score penalty per pending pod beyond tolerance")
	fs.IntVar(&cfg.Thresholds.PendingPodTolerance, "pending-pod-tolerance", cfg.Thresholds.PendingPodTolerance, "Pending pods tolerated before penalties")
	fs.Float64Var(&cfg.Thresholds.CPUUsagePercent, "cpu-usage-percent", cfg.Thresholds.CPUUsagePercent, "Aggregate CPU usage threshold in percent")
	fs.Float64Var(&cfg.Thresholds.MemoryUsagePercent, "memory-usage-percent", cfg.Thresholds.MemoryUsagePercent, "Aggregate memory usage threshold in percent")
	fs.IntVar(&cfg.Summary.EventCap, "event-cap", cfg.Summary.EventCap, "Max events spelled out in the analysis context")
	fs.IntVar(&cfg.Summary.FailedPodCap, "failed-pod-cap", cfg.Summary.FailedPodCap, "Max failed pods spelled out in the analysis context")
	fs.IntVar(&cfg.Summary.EventWindowHours, "event-window-hours", cfg.Summary.EventWindowHours, "Trailing event window in hours")
	fs.StringVar(&cfg.Report.WebhookURL, "report-webhook", cfg.Report.WebhookURL, "Report delivery webhook URL")
	fs.DurationVar(&cfg.Report.Timeout, "report-timeout", cfg.Report.Timeout, "Report delivery timeout")
	fs.IntVar(&cfg.Report.MaxRetries, "report-max-retries", cfg.Report.MaxRetries, "Delivery retries after the first attempt")
	fs.DurationVar(&cfg.Report.Backoff, "report-backoff", cfg.Report.Backoff, "Backoff between delivery attempts")
	fs.BoolVar(&cfg.Report.Gzip, "report-gzip", cfg.Report.Gzip, "Gzip-compress the delivery payload")

	if err := fs.Parse(os.Args[1:]); err != nil { // flag set already prints errors
		return Config{}, err
	}
	setFlags := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = f.Value.String()
	})

	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)

	// Flags bind straight into cfg, so the file and env passes above may have
	// clobbered them. Replay the explicitly set ones to restore precedence.
	for name, value := range setFlags {
		if err := fs.Set(name, value); err != nil {
			return Config{}, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Mode != "once" && cfg.Mode != "serve" {
		return fmt.Errorf("mode must be once or serve, got %q", cfg.Mode)
	}
	if cfg.Thresholds.FailedPodPenalty < 0 || cfg.Thresholds.PendingPodPenalty < 0 {
		return errors.New("pod penalties must be non-negative")
	}
	if cfg.Thresholds.PendingPodTolerance < 0 {
		return errors.New("pending pod tolerance must be non-negative")
	}
	if cfg.Thresholds.CPUUsagePercent <= 0 || cfg.Thresholds.CPUUsagePercent > 100 {
		return errors.New("cpu usage threshold must be in (0,100]")
	}
	if cfg.Thresholds.MemoryUsagePercent <= 0 || cfg.Thresholds.MemoryUsagePercent > 100 {
		return errors.New("memory usage threshold must be in (0,100]")
	}
	if cfg.Summary.EventCap <= 0 || cfg.Summary.FailedPodCap <= 0 {
		return errors.New("summary caps must be positive")
	}
	if cfg.Analyzer.Timeout <= 0 || cfg.Report.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path provided by cluster operator
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	type fileConfig Config
	var fileCfg fileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	mergeConfigs(cfg, Config(fileCfg))
	return nil
}

func mergeConfigs(base *Config, override Config) {
	if override.ClusterName != "" {
		base.ClusterName = override.ClusterName
	}
	if override.KubeconfigPath != "" {
		base.KubeconfigPath = override.KubeconfigPath
	}
	if override.Mode != "" {
		base.Mode = override.Mode
	}
	if override.IntervalMinutes != 0 {
		base.IntervalMinutes = override.IntervalMinutes
	}
	if override.ListenAddr != "" {
		base.ListenAddr = override.ListenAddr
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	mergeAnalyzerConfig(&base.Analyzer, override.Analyzer)
	mergeThresholdsConfig(&base.Thresholds, override.Thresholds)
	mergeSummaryConfig(&base.Summary, override.Summary)
	mergeReportConfig(&base.Report, override.Report)
}

func mergeAnalyzerConfig(base *AnalyzerConfig, override AnalyzerConfig) {
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Deployment != "" {
		base.Deployment = override.Deployment
	}
	if override.APIVersion != "" {
		base.APIVersion = override.APIVersion
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
}

func mergeThresholdsConfig(base *ThresholdsConfig, override ThresholdsConfig) {
	if override.FailedPodPenalty != 0 {
		base.FailedPodPenalty = override.FailedPodPenalty
	}
	if override.PendingPodPenalty != 0 {
		base.PendingPodPenalty = override.PendingPodPenalty
	}
	if override.PendingPodTolerance != 0 {
		base.PendingPodTolerance = override.PendingPodTolerance
	}
	if override.CPUUsagePercent != 0 {
		base.CPUUsagePercent = override.CPUUsagePercent
	}
	if override.MemoryUsagePercent != 0 {
		base.MemoryUsagePercent = override.MemoryUsagePercent
	}
	if override.HighPodCPUMilli != 0 {
		base.HighPodCPUMilli = override.HighPodCPUMilli
	}
	if override.HighPodMemoryBytes != 0 {
		base.HighPodMemoryBytes = override.HighPodMemoryBytes
	}
}

func mergeSummaryConfig(base *SummaryConfig, override SummaryConfig) {
	if override.EventCap != 0 {
		base.EventCap = override.EventCap
	}
	if override.FailedPodCap != 0 {
		base.FailedPodCap = override.FailedPodCap
	}
	if override.EventWindowHours != 0 {
		base.EventWindowHours = override.EventWindowHours
	}
}

func mergeReportConfig(base *ReportConfig, override ReportConfig) {
	if override.WebhookURL != "" {
		base.WebhookURL = override.WebhookURL
	}
	if override.AuthToken != "" {
		base.AuthToken = override.AuthToken
	}
	if len(override.Recipients) > 0 {
		base.Recipients = append([]string{}, override.Recipients...)
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
	if override.MaxRetries != 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.Backoff != 0 {
		base.Backoff = override.Backoff
	}
	if override.Gzip {
		base.Gzip = override.Gzip
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEALTHGUARDIAN_CLUSTER_NAME"); v != "" {
		cfg.ClusterName = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_KUBECONFIG"); v != "" {
		cfg.KubeconfigPath = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_INTERVAL_MINUTES"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.IntervalMinutes = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_ANALYZER_ENDPOINT"); v != "" {
		cfg.Analyzer.Endpoint = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_ANALYZER_API_KEY"); v != "" {
		cfg.Analyzer.APIKey = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_ANALYZER_DEPLOYMENT"); v != "" {
		cfg.Analyzer.Deployment = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_ANALYZER_API_VERSION"); v != "" {
		cfg.Analyzer.APIVersion = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_ANALYZER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.Timeout = d
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_FAILED_POD_PENALTY"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Thresholds.FailedPodPenalty = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_PENDING_POD_PENALTY"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Thresholds.PendingPodPenalty = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_PENDING_POD_TOLERANCE"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Thresholds.PendingPodTolerance = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_CPU_USAGE_PERCENT"); v != "" {
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.CPUUsagePercent = fv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_MEMORY_USAGE_PERCENT"); v != "" {
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.MemoryUsagePercent = fv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_EVENT_CAP"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Summary.EventCap = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_FAILED_POD_CAP"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Summary.FailedPodCap = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_EVENT_WINDOW_HOURS"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Summary.EventWindowHours = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_WEBHOOK"); v != "" {
		cfg.Report.WebhookURL = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_AUTH_TOKEN"); v != "" {
		cfg.Report.AuthToken = v
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_RECIPIENTS"); v != "" {
		cfg.Report.Recipients = splitRecipients(v)
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Report.Timeout = d
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_MAX_RETRIES"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			cfg.Report.MaxRetries = iv
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Report.Backoff = d
		}
	}
	if v := os.Getenv("HEALTHGUARDIAN_REPORT_GZIP"); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			cfg.Report.Gzip = bv
		}
	}
}

func splitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
