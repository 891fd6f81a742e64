package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/shared/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_DSN", "postgres://localhost/monitor")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != "7000" {
		t.Errorf("Expected http port 7000, got %s", cfg.HTTPPort)
	}
	if cfg.RefreshPeriod() != 30*time.Second {
		t.Errorf("Expected refresh period 30s, got %s", cfg.RefreshPeriod())
	}
	if cfg.DatabaseDriver != domain.DatabaseDriverPostgres {
		t.Errorf("Expected postgres driver, got %s", cfg.DatabaseDriver)
	}
	if cfg.AppEnv != domain.AppEnvProduction {
		t.Errorf("Expected production env, got %s", cfg.AppEnv)
	}
	if cfg.HistoryWorkers != 8 || cfg.DMWorkers != 4 {
		t.Errorf("Unexpected pool sizes: history=%d dm=%d", cfg.HistoryWorkers, cfg.DMWorkers)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_DSN", "postgres://localhost/monitor")

	_, err := Load()
	if !stderrors.Is(err, errors.ErrMissingBotToken) {
		t.Fatalf("Expected ErrMissingBotToken, got %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `
telegram_bot_token: "from-file"
database_driver: sqlite
database_dsn: "file:monitor.db"
refresh_interval: 15
admin_ids: [10, 20]
kafka_brokers: "k1:9092, k2:9092"
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TelegramBotToken != "from-env" {
		t.Errorf("Expected env override, got %s", cfg.TelegramBotToken)
	}
	if cfg.DatabaseDriver != domain.DatabaseDriverSqlite {
		t.Errorf("Expected sqlite driver, got %s", cfg.DatabaseDriver)
	}
	if cfg.RefreshInterval != 15 {
		t.Errorf("Expected refresh interval 15, got %d", cfg.RefreshInterval)
	}
	if !cfg.IsAdmin(20) || cfg.IsAdmin(30) {
		t.Errorf("Unexpected admin ids: %v", cfg.AdminIDs)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Unexpected kafka brokers: %v", cfg.KafkaBrokers)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_DSN", "x")
	t.Setenv("DATABASE_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("Expected validation error for unknown driver")
	}
}

func TestParseIDList(t *testing.T) {
	ids := ParseIDList("1, 2,,x,3")
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("Unexpected ids: %v", ids)
	}
	if got := ParseIDList(nil); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
}
