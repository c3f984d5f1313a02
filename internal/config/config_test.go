package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetArgs(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	os.Args = []string{"k8s-health-guardian"}
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "once" {
		t.Fatalf("expected default mode once, got %q", cfg.Mode)
	}
	if cfg.IntervalMinutes != 60 || cfg.ListenAddr != ":8080" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Analyzer.Deployment != "gpt-4o-mini" || cfg.Analyzer.APIVersion != "2024-02-15-preview" {
		t.Fatalf("unexpected analyzer defaults: %+v", cfg.Analyzer)
	}
	if cfg.Thresholds.FailedPodPenalty != 10 || cfg.Thresholds.PendingPodPenalty != 2 {
		t.Fatalf("unexpected threshold defaults: %+v", cfg.Thresholds)
	}
	if cfg.Summary.EventCap != 20 || cfg.Summary.FailedPodCap != 10 || cfg.Summary.EventWindowHours != 24 {
		t.Fatalf("unexpected summary defaults: %+v", cfg.Summary)
	}
	if cfg.EventWindow() != 24*time.Hour || cfg.Interval() != 60*time.Minute {
		t.Fatalf("unexpected derived durations: %v %v", cfg.EventWindow(), cfg.Interval())
	}
}

func TestLoadMergesFileEnvAndDefaults(t *testing.T) {
	resetArgs(t)

	configYAML := `
clusterName: from-file
mode: serve
intervalMinutes: 15
analyzer:
  endpoint: https://file.example.com
  apiKey: file-key
thresholds:
  failedPodPenalty: 5
report:
  webhookUrl: https://hooks.example.com/report
  recipients:
    - a@example.com
    - b@example.com
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HEALTHGUARDIAN_CONFIG_FILE", path)
	t.Setenv("HEALTHGUARDIAN_CLUSTER_NAME", "from-env")
	t.Setenv("HEALTHGUARDIAN_ANALYZER_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Env beats file, file beats defaults, defaults fill the rest.
	if cfg.ClusterName != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.ClusterName)
	}
	if cfg.Mode != "serve" || cfg.IntervalMinutes != 15 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Analyzer.Endpoint != "https://file.example.com" || cfg.Analyzer.APIKey != "file-key" {
		t.Fatalf("analyzer file values not applied: %+v", cfg.Analyzer)
	}
	if cfg.Analyzer.Timeout != 45*time.Second {
		t.Fatalf("analyzer env timeout not applied: %v", cfg.Analyzer.Timeout)
	}
	if cfg.Analyzer.Deployment != "gpt-4o-mini" {
		t.Fatalf("default deployment lost: %q", cfg.Analyzer.Deployment)
	}
	if cfg.Thresholds.FailedPodPenalty != 5 {
		t.Fatalf("threshold file value not applied: %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.PendingPodPenalty != 2 {
		t.Fatalf("default penalty lost: %+v", cfg.Thresholds)
	}
	if len(cfg.Report.Recipients) != 2 || cfg.Report.Recipients[0] != "a@example.com" {
		t.Fatalf("recipients not applied: %+v", cfg.Report.Recipients)
	}
}

func TestLoadRecipientsFromEnv(t *testing.T) {
	resetArgs(t)
	t.Setenv("HEALTHGUARDIAN_REPORT_RECIPIENTS", "ops@example.com, oncall@example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Report.Recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %+v", cfg.Report.Recipients)
	}
	if cfg.Report.Recipients[1] != "oncall@example.com" {
		t.Fatalf("recipient not trimmed: %+v", cfg.Report.Recipients)
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	resetArgs(t)
	t.Setenv("HEALTHGUARDIAN_MODE", "daemon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	resetArgs(t)
	t.Setenv("HEALTHGUARDIAN_CPU_USAGE_PERCENT", "150")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for cpu threshold above 100")
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"k8s-health-guardian", "-cluster-name", "from-flag", "-interval", "5"}
	t.Cleanup(func() { os.Args = oldArgs })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ClusterName != "from-flag" || cfg.IntervalMinutes != 5 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestLoadFlagsBeatFileAndEnv(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"k8s-health-guardian", "-cluster-name", "from-flag"}
	t.Cleanup(func() { os.Args = oldArgs })

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("clusterName: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HEALTHGUARDIAN_CONFIG_FILE", path)
	t.Setenv("HEALTHGUARDIAN_CLUSTER_NAME", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ClusterName != "from-flag" {
		t.Fatalf("expected flag to win, got %q", cfg.ClusterName)
	}
}
