package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockUsecase_SetStock_AdjustsAndRecalculates(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddStock(f.key, locA, 4)

	out, err := f.stock.SetStock(context.Background(), adminID, usecase.SetStockInput{StockID: a.ID, Quantity: 0})
	require.NoError(t, err)

	assert.Equal(t, int64(0), out.Quantity)
	assert.Equal(t, int64(0), f.store.Stock(a.ID).Quantity)
	assert.Equal(t, int64(0), f.store.OnlineQuantity(f.key))

	mv := f.store.Movements()
	require.Len(t, mv, 1)
	assert.Equal(t, model.MovementAdjust, mv[0].Reason)
	assert.Equal(t, int64(-4), mv[0].Delta)
	require.NotNil(t, mv[0].ActorUserID)
	assert.Equal(t, adminID, *mv[0].ActorUserID)

	audits := f.store.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditActionUpdateStock, audits[0].Action)
	assert.Equal(t, model.AuditResourceStock, audits[0].ResourceType)
	assert.JSONEq(t, `{"quantity":4}`, audits[0].BeforeJSON)
	assert.JSONEq(t, `{"quantity":0}`, audits[0].AfterJSON)
}

func TestStockUsecase_SetStock_Validation(t *testing.T) {
	f := newFixture(t)
	online := f.store.AddStock(f.key, model.LocationOnline, 1)
	a := f.store.AddStock(f.key, locA, 1)
	ctx := context.Background()

	_, err := f.stock.SetStock(ctx, adminID, usecase.SetStockInput{StockID: a.ID, Quantity: -1})
	assertKind(t, err, http.StatusBadRequest, usecase.KindInvalidInput)

	_, err = f.stock.SetStock(ctx, adminID, usecase.SetStockInput{StockID: online.ID, Quantity: 0})
	assertErrContains(t, err, "online stock is derived")

	_, err = f.stock.SetStock(ctx, adminID, usecase.SetStockInput{StockID: 999, Quantity: 1})
	assertKind(t, err, http.StatusNotFound, usecase.KindInvalidInput)

	_, err = f.stock.SetStock(ctx, 0, usecase.SetStockInput{StockID: a.ID, Quantity: 1})
	assertKind(t, err, http.StatusUnauthorized, usecase.KindUnauthorized)

	assert.Equal(t, int64(1), f.store.Stock(online.ID).Quantity)
	assert.Empty(t, f.store.Movements())
}

func TestStockUsecase_BatchSetStock_SkipsOnlineAndUnknownRows(t *testing.T) {
	f := newFixture(t)
	_, keyS := f.otherSize("S")
	online := f.store.AddStock(f.key, model.LocationOnline, 0)
	a := f.store.AddStock(f.key, locA, 0)
	s := f.store.AddStock(keyS, locB, 5)

	out, err := f.stock.BatchSetStock(context.Background(), adminID, map[int64]int64{
		online.ID: 7,
		a.ID:      2,
		s.ID:      0,
		999:       1,
	})
	require.NoError(t, err)

	assert.Len(t, out.Updated, 2)
	assert.ElementsMatch(t, []int64{online.ID, 999}, out.Skipped)

	assert.Equal(t, int64(2), f.store.Stock(a.ID).Quantity)
	assert.Equal(t, int64(0), f.store.Stock(s.ID).Quantity)
	// onlineは直接書かれず、再計算で1になる
	assert.Equal(t, int64(1), f.store.Stock(online.ID).Quantity)
	assert.Equal(t, int64(0), f.store.OnlineQuantity(keyS))
	assert.Len(t, f.store.Audits(), 2)
}

func TestStockUsecase_BatchSetStock_NegativeRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddStock(f.key, locA, 3)
	b := f.store.AddStock(f.key, locB, 3)

	_, err := f.stock.BatchSetStock(context.Background(), adminID, map[int64]int64{a.ID: 1, b.ID: -2})
	assertKind(t, err, http.StatusBadRequest, usecase.KindInvalidInput)

	assert.Equal(t, int64(3), f.store.Stock(a.ID).Quantity)
	assert.Equal(t, int64(3), f.store.Stock(b.ID).Quantity)
	assert.Equal(t, 0, f.store.TxCount())
}

func TestStockUsecase_BatchSetStock_Empty(t *testing.T) {
	f := newFixture(t)

	_, err := f.stock.BatchSetStock(context.Background(), adminID, map[int64]int64{})
	assertErrContains(t, err, "updates required")
}

func TestStockUsecase_ListStock(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)
	f.store.AddStock(f.key, model.LocationOnline, 1)

	rows, err := f.stock.ListStock(context.Background(), f.product.ID, f.color.ID, "M")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = f.stock.ListStock(context.Background(), f.product.ID, f.color.ID, "XXL")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.stock.ListStock(context.Background(), f.product.ID, f.color.ID, " ")
	assertErrContains(t, err, "invalid stock key")
}

func TestStockUsecase_RecalculateAll(t *testing.T) {
	f := newFixture(t)
	f.store.AddStock(f.key, locA, 2)

	n, err := f.stock.RecalculateAll(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), f.store.OnlineQuantity(f.key))

	audits := f.store.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditActionRecalculateOnline, audits[0].Action)
	assert.Equal(t, adminID, audits[0].ActorUserID)
	assert.JSONEq(t, `{"tuples":1}`, audits[0].AfterJSON)
}
