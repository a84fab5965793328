package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	"storefront/internal/testutil/memstore"
	"storefront/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

var (
	locA = model.Location("monastir")
	locB = model.Location("tunis")
	locC = model.Location("sfax")

	testLocations = []model.Location{locA, locB, locC}
)

const adminID int64 = 1

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqID struct {
	mu sync.Mutex
	n  int
}

func (g *seqID) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "ev-" + strconv.Itoa(g.n)
}

// 配信されたイベントを貯める
type capturePublisher struct {
	mu     sync.Mutex
	events []model.OrderStatusChanged
	err    error
}

func (p *capturePublisher) PublishStatusChanged(ctx context.Context, ev model.OrderStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type captureCache struct {
	mu    sync.Mutex
	flags map[model.StockKey]int64
	err   error
}

func (c *captureCache) SetFlags(ctx context.Context, flags map[model.StockKey]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.flags == nil {
		c.flags = map[model.StockKey]int64{}
	}
	for k, v := range flags {
		c.flags[k] = v
	}
	return nil
}

type fixture struct {
	store   *memstore.Store
	metrics *metrics.Metrics
	events  *capturePublisher
	cache   *captureCache
	recalc  *usecase.Recalculator
	admin   *usecase.AdminOrderUsecase
	orders  *usecase.OrderUsecase
	stock   *usecase.StockUsecase

	product model.Product
	color   model.ColorVariant
	size    model.Size
	key     model.StockKey
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   memstore.New(),
		metrics: metrics.New(prometheus.NewRegistry()),
		events:  &capturePublisher{},
		cache:   &captureCache{},
	}
	clock := fixedClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	f.recalc = usecase.NewRecalculator(f.store, usecase.RecalculatorOptions{
		Locations:   testLocations,
		Cache:       f.cache,
		Metrics:     f.metrics,
		Logger:      discardLogger(),
		MaxAttempts: 3,
		Backoff:     0,
	})
	f.admin = usecase.NewAdminOrderUsecase(f.store, usecase.AdminOrderDeps{
		Allocator: usecase.NewAllocator(testLocations),
		Restorer:  usecase.NewRestorer(testLocations, locA),
		Recalc:    f.recalc,
		Events:    f.events,
		Metrics:   f.metrics,
		Logger:    discardLogger(),
		IDGen:     &seqID{},
		Clock:     clock,
	})
	f.orders = usecase.NewOrderUsecase(f.store)
	f.stock = usecase.NewStockUsecase(f.store, f.recalc, f.metrics, clock)

	f.product = f.store.AddProduct("Robe lin", "49.90")
	f.color = f.store.AddColor(f.product.ID, "noir")
	f.size = f.store.AddSize("M")
	f.key = model.StockKey{ProductID: f.product.ID, ColorVariantID: f.color.ID, Size: f.size.Value}
	return f
}

// 同じ商品・カラーで別サイズのタプルを作る
func (f *fixture) otherSize(value string) (model.Size, model.StockKey) {
	sz := f.store.AddSize(value)
	return sz, model.StockKey{ProductID: f.product.ID, ColorVariantID: f.color.ID, Size: value}
}

func (f *fixture) item(sz model.Size, qty int64) model.OrderItem {
	return model.OrderItem{
		ProductID:      f.product.ID,
		ColorVariantID: f.color.ID,
		SizeID:         sz.ID,
		Quantity:       qty,
		Price:          f.product.Price,
	}
}

func (f *fixture) setStatus(t *testing.T, orderID int64, status model.OrderStatus) (model.Order, error) {
	t.Helper()
	return f.admin.SetOrderStatus(context.Background(), adminID, orderID, usecase.SetOrderStatusInput{Status: string(status)})
}

func assertKind(t *testing.T, err error, status int, kind usecase.ErrorKind) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "want *HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
		assert.Equal(t, kind, he.Kind)
	}
}

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}
