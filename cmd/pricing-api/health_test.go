package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

func serveReady(t *testing.T, probes ...probe) (int, HealthResponse) {
	t.Helper()
	r := gin.New()
	r.GET("/ready", readyHandler(probes...))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestReadyHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	code, resp := serveReady(t, databaseProbe(db), redisProbe(client))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Checks["redis"])
	assert.Equal(t, "ok", resp.Checks["database"])

	code, resp = serveReady(t, databaseProbe(db), redisProbe(nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disabled", resp.Checks["redis"])

	mr.Close()
	code, resp = serveReady(t, databaseProbe(db), redisProbe(client))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, resp.Checks["redis"], "degraded")

	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())
	code, resp = serveReady(t, databaseProbe(db), redisProbe(nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", resp.Status)
}

func TestSettingsProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	provider := settings.NewProvider(repository.NewSettingRepository(db), &config.PricingConfig{DefaultCurrency: "USD", RateStaleAfter: time.Hour})
	require.NoError(t, provider.Refresh(context.Background()))

	code, resp := serveReady(t, settingsProbe(provider, time.Minute))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Checks["settings"])

	time.Sleep(5 * time.Millisecond)
	code, resp = serveReady(t, settingsProbe(provider, time.Millisecond))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, resp.Checks["settings"], "degraded")
}
