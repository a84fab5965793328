package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/domain/model"
)

// エラーの分類（レスポンスの kind にそのまま出す）
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindInsufficientStock  ErrorKind = "INSUFFICIENT_STOCK"
	KindPersistenceFailure ErrorKind = "PERSISTENCE_FAILURE"
	KindRecalculationDrift ErrorKind = "RECALCULATION_DRIFT"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
)

type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Details any
	Err     error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// statusからkindを決める（4xxは入力エラー、5xxは永続化エラー）
func NewHTTPError(status int, message string) error {
	kind := KindInvalidInput
	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status >= 500:
		kind = KindPersistenceFailure
	}
	return &HTTPError{
		Status:  status,
		Kind:    kind,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// DBエラーは中身を隠して500にする（原因はErrに残す）
func dbError(err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Kind:    KindPersistenceFailure,
		Message: "db error",
		Err:     err,
	}
}

// 在庫不足。どのタプルがいくつ足りないかを持つ。
type InsufficientStockError struct {
	Key       model.StockKey `json:"key"`
	Requested int64          `json:"requested"`
	Available int64          `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Key, e.Requested, e.Available)
}

func insufficientStock(e *InsufficientStockError) error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Kind:    KindInsufficientStock,
		Message: "insufficient stock",
		Details: e,
		Err:     e,
	}
}
