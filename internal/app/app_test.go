package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := InitLogger(&buf, "warn")

	logger.Info("dropped")
	slog.Warn("kept", "op", "test")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "test", record["op"])
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: "0", Environment: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:", AutoMigrate: true, ConnectAttempts: 1},
		Analysis: config.AnalysisConfig{DefaultThreshold: 1.1},
		Ingest:   config.IngestConfig{DefaultFile: "pricing_data.csv", WatchDir: t.TempDir()},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, context.Context) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	t.Cleanup(cancel)
	return a, ctx
}

func TestNew_ServesHealth(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","db":"up"}`, w.Body.String())
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := New(context.Background(), cfg, slog.Default())
	assert.Error(t, err)
}

func TestWatchInbox(t *testing.T) {
	cfg := testConfig(t)
	a, ctx := newTestApp(t, cfg)

	require.NoError(t, a.WatchInbox(ctx))

	feed := "s_title_diy,s_vendor_diy,s_price_diy,s_link_diy,s_price_competitor,s_vendor_competitor,matching_score\n" +
		"Oat Milk,FreshMart,9.90,https://freshmart.test/oat,8.50,ShopB,0.7\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingest.WatchDir, "drop.csv"), []byte(feed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingest.WatchDir, "notes.txt"), []byte("ignored"), 0o644))

	assert.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
		var listing domain.ProductListing
		if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
			return false
		}
		return listing.Pagination.Total == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchInbox_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ingest.WatchDir = ""
	a, ctx := newTestApp(t, cfg)

	assert.NoError(t, a.WatchInbox(ctx))
	assert.Nil(t, a.watcher)
}
