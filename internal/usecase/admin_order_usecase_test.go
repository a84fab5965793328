package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// AdminTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type AdminTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *AdminTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type AdminTxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	stocks     repo.StockRepository
	auditLogs  repo.AuditLogRepository

	// AdminOrderUsecase では使わないが TxRepos interface を満たすために保持
	catalog repo.CatalogRepository
}

func (r *AdminTxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *AdminTxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *AdminTxReposMock) Stocks() repo.StockRepository         { return r.stocks }
func (r *AdminTxReposMock) Catalog() repo.CatalogRepository      { return r.catalog }
func (r *AdminTxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type AdminOrderRepoMock struct{ mock.Mock }

func (m *AdminOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) FindWithItems(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *AdminOrderRepoMock) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AdminOrderItemRepoMock struct{ mock.Mock }

func (m *AdminOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *AdminOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

// 引当で使うところだけ
type AdminStockRepoMock struct {
	mock.Mock
	repo.StockRepository
}

func (m *AdminStockRepoMock) LockPhysical(ctx context.Context, key model.StockKey, locations []model.Location) ([]model.Stock, error) {
	args := m.Called(ctx, key, locations)
	rows, _ := args.Get(0).([]model.Stock)
	return rows, args.Error(1)
}

func (m *AdminStockRepoMock) SetQuantity(ctx context.Context, stockID int64, qty int64) error {
	args := m.Called(ctx, stockID, qty)
	return args.Error(0)
}

func (m *AdminStockRepoMock) CreateMovement(ctx context.Context, mv model.StockMovement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

type AdminAuditRepoMock struct{ mock.Mock }

func (m *AdminAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AdminAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type adminMocks struct {
	tx     *AdminTxManagerMock
	orders *AdminOrderRepoMock
	items  *AdminOrderItemRepoMock
	stocks *AdminStockRepoMock
	audit  *AdminAuditRepoMock
	uc     *usecase.AdminOrderUsecase
}

func newAdminMocks() *adminMocks {
	m := &adminMocks{
		tx:     new(AdminTxManagerMock),
		orders: new(AdminOrderRepoMock),
		items:  new(AdminOrderItemRepoMock),
		stocks: new(AdminStockRepoMock),
		audit:  new(AdminAuditRepoMock),
	}
	m.tx.Repos = &AdminTxReposMock{
		orders:     m.orders,
		orderItems: m.items,
		stocks:     m.stocks,
		auditLogs:  m.audit,
	}

	m.uc = usecase.NewAdminOrderUsecase(m.tx, usecase.AdminOrderDeps{
		Allocator: usecase.NewAllocator(testLocations),
		Restorer:  usecase.NewRestorer(testLocations, locA),
		Recalc:    noopRecalculator(),
		Logger:    discardLogger(),
	})
	return m
}

// 再計算はモックのTxに載せない
func noopRecalculator() *usecase.Recalculator {
	return usecase.NewRecalculator(new(noopTx), usecase.RecalculatorOptions{
		Locations:   testLocations,
		Logger:      discardLogger(),
		MaxAttempts: 1,
	})
}

// 何もしないTx（再計算のSumPhysicalを呼ばせない用）
type noopTx struct{}

func (noopTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error { return nil }

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidPage(t *testing.T) {
	m := newAdminMocks()

	out, err := m.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assert.Equal(t, 0, len(out.Items))
	assertErrContains(t, err, "invalid page")
}

func TestAdminOrderUsecase_List_InvalidLimit(t *testing.T) {
	m := newAdminMocks()

	out, err := m.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assert.Equal(t, 0, len(out.Items))
	assertErrContains(t, err, "invalid limit")
}

func TestAdminOrderUsecase_List_InvalidStatus(t *testing.T) {
	m := newAdminMocks()

	_, err := m.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "PAID"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_List_Success_CallsItemsPerOrder(t *testing.T) {
	ctx := context.Background()
	m := newAdminMocks()
	m.tx.On("WithinTx", mock.Anything).Return(nil)

	f := repo.AdminOrderListFilter{Page: 1, Limit: 20}
	orders := []model.Order{
		{ID: 10, Status: model.OrderStatusPending},
		{ID: 11, Status: model.OrderStatusConfirmed},
	}

	m.orders.On("ListAdmin", mock.Anything, f).Return(orders, int64(2), nil)
	m.items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)
	m.items.On("ListByOrderID", mock.Anything, int64(11)).Return([]model.OrderItem{{ID: 1, OrderID: 11, Quantity: 2}}, nil)

	out, err := m.uc.List(ctx, f)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Items))
	assert.Equal(t, int64(2), out.Total)
	assert.Len(t, out.Items[1].Items, 1)

	m.tx.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.items.AssertExpectations(t)
}

func TestAdminOrderUsecase_List_DBError(t *testing.T) {
	m := newAdminMocks()
	m.tx.On("WithinTx", mock.Anything).Return(nil)

	f := repo.AdminOrderListFilter{Page: 1, Limit: 20}
	m.orders.On("ListAdmin", mock.Anything, f).Return(nil, int64(0), errors.New("db down"))

	_, err := m.uc.List(context.Background(), f)
	assertKind(t, err, http.StatusInternalServerError, usecase.KindPersistenceFailure)
	assertErrContains(t, err, "db error")
}

// =====================
// SetOrderStatus tests
// =====================

func TestAdminOrderUsecase_SetOrderStatus_OrderLookupError(t *testing.T) {
	m := newAdminMocks()
	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{}, errors.New("connection reset"))

	_, err := m.uc.SetOrderStatus(context.Background(), adminID, 5, usecase.SetOrderStatusInput{Status: "CONFIRMED"})
	assertKind(t, err, http.StatusInternalServerError, usecase.KindPersistenceFailure)

	m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	m.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_SetOrderStatus_NotFound(t *testing.T) {
	m := newAdminMocks()
	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{}, repo.ErrNotFound)

	_, err := m.uc.SetOrderStatus(context.Background(), adminID, 5, usecase.SetOrderStatusInput{Status: "CONFIRMED"})
	assertKind(t, err, http.StatusNotFound, usecase.KindInvalidInput)
	assertErrContains(t, err, "order not found")
}

// 書き込み衝突は「write conflict」の500として返す
func TestAdminOrderUsecase_SetOrderStatus_WriteConflict(t *testing.T) {
	m := newAdminMocks()
	m.tx.On("WithinTx", mock.Anything).Return(nil)

	size := model.Size{ID: 3, Value: "M"}
	item := model.OrderItem{ID: 1, OrderID: 5, ProductID: 1, ColorVariantID: 2, SizeID: 3, Quantity: 1, Size: &size}
	key := item.StockKey()

	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{ID: 5, Status: model.OrderStatusPending}, nil)
	m.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{item}, nil)
	m.stocks.On("LockPhysical", mock.Anything, key, testLocations).
		Return(nil, fmt.Errorf("%w: deadlock detected", repo.ErrConflict))

	_, err := m.uc.SetOrderStatus(context.Background(), adminID, 5, usecase.SetOrderStatusInput{Status: "CONFIRMED"})
	assertKind(t, err, http.StatusInternalServerError, usecase.KindPersistenceFailure)
	assertErrContains(t, err, "write conflict")

	he, _ := usecase.AsHTTPError(err)
	assert.True(t, errors.Is(he, repo.ErrConflict))
	m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_SetOrderStatus_Confirm_UpdatesAndAudits(t *testing.T) {
	m := newAdminMocks()
	m.tx.On("WithinTx", mock.Anything).Return(nil)

	size := model.Size{ID: 3, Value: "M"}
	item := model.OrderItem{ID: 1, OrderID: 5, ProductID: 1, ColorVariantID: 2, SizeID: 3, Quantity: 2, Size: &size}
	key := item.StockKey()
	row := model.Stock{ID: 9, ProductID: 1, ColorVariantID: 2, Size: "M", Location: locB, Quantity: 4}

	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{ID: 5, Status: model.OrderStatusPending}, nil)
	m.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{item}, nil)
	m.stocks.On("LockPhysical", mock.Anything, key, testLocations).Return([]model.Stock{row}, nil)
	m.stocks.On("SetQuantity", mock.Anything, int64(9), int64(2)).Return(nil)
	m.stocks.On("CreateMovement", mock.Anything, mock.MatchedBy(func(mv model.StockMovement) bool {
		return mv.StockID == 9 && mv.Delta == -2 && mv.Reason == model.MovementAllocate
	})).Return(nil)
	m.orders.On("UpdateStatus", mock.Anything, int64(5), model.OrderStatusConfirmed).Return(nil)
	m.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == adminID && l.ResourceID == 5 && l.Action == model.AuditActionUpdateOrderStatus
	})).Return(nil)
	m.orders.On("FindWithItems", mock.Anything, int64(5)).Return(model.Order{ID: 5, Status: model.OrderStatusConfirmed}, nil)

	out, err := m.uc.SetOrderStatus(context.Background(), adminID, 5, usecase.SetOrderStatusInput{Status: "CONFIRMED"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, out.Status)

	m.tx.AssertNumberOfCalls(t, "WithinTx", 2)
	m.orders.AssertExpectations(t)
	m.stocks.AssertExpectations(t)
	m.audit.AssertExpectations(t)
}
