package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testProduct struct {
	ID   uint   `gorm:"primaryKey"`
	SKU  string `gorm:"size:64"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testProduct{}))
	return db
}

func setupRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestAnnotateSpan_RowsAndTable(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "bulk-create")

	result := db.WithContext(ctx).Create(&[]testProduct{{SKU: "A"}, {SKU: "B"}, {SKU: "C"}})
	require.NoError(t, result.Error)
	annotateSpan(result, time.Hour)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	rows, ok := spanAttr(spans[0], "db.rows_affected")
	require.True(t, ok)
	assert.Equal(t, int64(3), rows.AsInt64())
	table, ok := spanAttr(spans[0], "db.sql.table")
	require.True(t, ok)
	assert.Equal(t, "test_products", table.AsString())
	_, slow := spanAttr(spans[0], "db.slow_query")
	assert.False(t, slow)
}

func TestAnnotateSpan_SlowQuery(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "slow")
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))

	var products []testProduct
	result := db.WithContext(ctx).Find(&products)
	require.NoError(t, result.Error)
	annotateSpan(result, 10*time.Millisecond)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	slow, ok := spanAttr(spans[0], "db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())
	duration, ok := spanAttr(spans[0], "db.query_duration_ms")
	require.True(t, ok)
	assert.GreaterOrEqual(t, duration.AsInt64(), int64(1000))
}

func TestAnnotateSpan_Errors(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupRecorder(t)

	t.Run("record not found is not an error", func(t *testing.T) {
		ctx, span := tp.Tracer("test").Start(context.Background(), "not-found")
		var p testProduct
		result := db.WithContext(ctx).First(&p, "sku = ?", "missing")
		require.ErrorIs(t, result.Error, gorm.ErrRecordNotFound)
		annotateSpan(result, time.Hour)
		span.End()

		spans := recorder.Ended()
		assert.NotEqual(t, codes.Error, spans[len(spans)-1].Status().Code)
	})

	t.Run("query error marks the span", func(t *testing.T) {
		ctx, span := tp.Tracer("test").Start(context.Background(), "broken")
		result := db.WithContext(ctx).Exec("SELECT * FROM no_such_table")
		require.Error(t, result.Error)
		annotateSpan(result, time.Hour)
		span.End()

		spans := recorder.Ended()
		assert.Equal(t, codes.Error, spans[len(spans)-1].Status().Code)
	})
}

func TestAnnotateSpan_WithoutRecordingSpan(t *testing.T) {
	db := setupTestDB(t)
	assert.NotPanics(t, func() {
		annotateSpan(db.WithContext(context.Background()).Find(&[]testProduct{}), time.Hour)
		annotateSpan(db, time.Hour)
	})
}

func TestRegisterDBTracing(t *testing.T) {
	restoreGlobalProvider(t)
	tp, recorder := setupRecorder(t)
	otel.SetTracerProvider(tp)

	db := setupTestDB(t)
	require.NoError(t, RegisterDBTracing(db, "sqlite", 0, zap.NewNop()))

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Create(&testProduct{SKU: "A", Name: "Widget"}).Error)
	var found testProduct
	require.NoError(t, db.WithContext(ctx).First(&found, "sku = ?", "A").Error)
	assert.Equal(t, "Widget", found.Name)
	span.End()

	spans := recorder.Ended()
	assert.Greater(t, len(spans), 1, "queries produce their own spans")

	t.Run("registering twice fails", func(t *testing.T) {
		assert.Error(t, RegisterDBTracing(db, "sqlite", 0, zap.NewNop()))
	})
}
