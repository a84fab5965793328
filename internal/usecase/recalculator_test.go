package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculate_FlagFollowsPhysicalTotal(t *testing.T) {
	f := newFixture(t)
	_, keyS := f.otherSize("S")
	_, keyXL := f.otherSize("XL")

	f.store.AddStock(f.key, locA, 0)
	f.store.AddStock(f.key, locB, 3)
	f.store.AddStock(keyS, locA, 0)
	f.store.AddStock(keyS, model.LocationOnline, 1) // 古いフラグ

	flags, err := f.recalc.Recalculate(context.Background(), []model.StockKey{f.key, keyS, keyXL, f.key})
	require.NoError(t, err)

	assert.Equal(t, map[model.StockKey]int64{f.key: 1, keyS: 0}, flags)
	assert.Equal(t, int64(1), f.store.OnlineQuantity(f.key))
	assert.Equal(t, int64(0), f.store.OnlineQuantity(keyS))
	// 物理行がないタプルにはonline行を作らない
	assert.Equal(t, int64(-1), f.store.OnlineQuantity(keyXL))
}

func TestRecalculate_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)

	for i := 0; i < 3; i++ {
		_, err := f.recalc.Recalculate(context.Background(), []model.StockKey{f.key})
		require.NoError(t, err)
	}

	rows := f.store.StocksByKey(f.key)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), f.store.OnlineQuantity(f.key))
}

func TestRecalculateWithRetry_RecoversFromTransientConflict(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)
	f.store.Fail("Stocks.SumPhysical", errors.New("deadlock detected"), 1)

	err := f.recalc.RecalculateWithRetry(context.Background(), []model.StockKey{f.key})
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.store.OnlineQuantity(f.key))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RecalculationRetries))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.RecalculationDriftTotal))
	assert.Equal(t, int64(1), f.cache.flags[f.key])
}

func TestRecalculateWithRetry_GivesUpWithDrift(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)
	f.store.Fail("Stocks.SumPhysical", errors.New("connection refused"), 0)

	err := f.recalc.RecalculateWithRetry(context.Background(), []model.StockKey{f.key})
	assertKind(t, err, http.StatusInternalServerError, usecase.KindRecalculationDrift)

	// 3回試した
	assert.Equal(t, 3, f.store.TxCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RecalculationDriftTotal))
	assert.Nil(t, f.cache.flags)
}

func TestRecalculateWithRetry_StopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.recalc.RecalculateWithRetry(ctx, []model.StockKey{f.key})
	assertKind(t, err, http.StatusInternalServerError, usecase.KindRecalculationDrift)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.RecalculationRetries))
}

func TestRecalculateWithRetry_CacheFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)
	f.cache.err = errors.New("redis down")

	err := f.recalc.RecalculateWithRetry(context.Background(), []model.StockKey{f.key})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.store.OnlineQuantity(f.key))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PublishFailuresTotal.WithLabelValues("redis")))
}

func TestRecalculateAll_CoversEveryTupleWithPhysicalStock(t *testing.T) {
	f := newFixture(t)
	_, keyS := f.otherSize("S")
	other := f.store.AddProduct("Chemise", "29.00")
	otherColor := f.store.AddColor(other.ID, "blanc")
	keyOther := model.StockKey{ProductID: other.ID, ColorVariantID: otherColor.ID, Size: "M"}

	f.store.AddStock(f.key, locA, 1)
	f.store.AddStock(keyS, locB, 0)
	f.store.AddStock(keyOther, locC, 5)

	n, err := f.recalc.RecalculateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, int64(1), f.store.OnlineQuantity(f.key))
	assert.Equal(t, int64(0), f.store.OnlineQuantity(keyS))
	assert.Equal(t, int64(1), f.store.OnlineQuantity(keyOther))
}
