package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// チェックアウト（注文の受付）。在庫は確定時に引き当てるのでここでは触らない。
type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type PlaceOrderItemInput struct {
	ProductID int64  `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int64  `json:"quantity"`
}

type PlaceOrderInput struct {
	CustomerName   string                `json:"customer_name"`
	PhoneNumber    string                `json:"phone_number"`
	Address        string                `json:"address"`
	Items          []PlaceOrderItemInput `json:"items"`
	IdempotencyKey string                `json:"-"`
}

const maxOrderItems = 100

func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	name := strings.TrimSpace(in.CustomerName)
	phone := strings.TrimSpace(in.PhoneNumber)
	addr := strings.TrimSpace(in.Address)
	if name == "" || len(name) > 255 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid customer_name")
	}
	if phone == "" || len(phone) > 30 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid phone_number")
	}
	if addr == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid address")
	}
	if len(in.Items) == 0 || len(in.Items) > maxOrderItems {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid items")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || strings.TrimSpace(it.Color) == "" || strings.TrimSpace(it.Size) == "" {
			return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid item")
		}
		if it.Quantity <= 0 {
			return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	var keyPtr *string
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	if key != "" {
		keyPtr = &key
	}

	var out model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if keyPtr != nil {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, key)
			if err != nil {
				return dbError(err)
			}
			if found {
				o, err := r.Orders().FindWithItems(ctx, existing.ID)
				if err != nil {
					return dbError(err)
				}
				out = o
				return nil
			}
		}

		items := make([]model.OrderItem, 0, len(in.Items))
		total := decimal.Zero

		for _, it := range in.Items {
			p, err := r.Catalog().FindProduct(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			if err != nil {
				return dbError(err)
			}

			cv, err := r.Catalog().FindColorVariant(ctx, p.ID, strings.TrimSpace(it.Color))
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "color not found")
			}
			if err != nil {
				return dbError(err)
			}

			sz, err := r.Catalog().FindSizeByValue(ctx, strings.TrimSpace(it.Size))
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "size not found")
			}
			if err != nil {
				return dbError(err)
			}

			// 価格はカタログからスナップショット
			items = append(items, model.OrderItem{
				ProductID:      p.ID,
				ColorVariantID: cv.ID,
				SizeID:         sz.ID,
				Quantity:       it.Quantity,
				Price:          p.Price,
			})
			total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
		}

		orderID, err := r.Orders().Create(ctx, model.Order{
			CustomerName:   name,
			PhoneNumber:    phone,
			Address:        addr,
			Status:         model.OrderStatusPending,
			TotalAmount:    total,
			IdempotencyKey: keyPtr,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			// 同じキーが同時に入った。Txはもう使えないので409で返す
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		if err != nil {
			return dbError(err)
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return dbError(err)
		}

		o, err := r.Orders().FindWithItems(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, txError(err)
	}
	return out, nil
}
