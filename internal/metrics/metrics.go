// Package metrics は在庫引当まわりのPrometheus指標をまとめる。
//
// レジストリは外から渡す（テストでは prometheus.NewRegistry() を使う）。
// nilの *Metrics でもメソッドは呼べる。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 注文ステータス遷移（from, to）
	OrderTransitionsTotal *prometheus.CounterVec

	// 引当結果（ok / insufficient / error）
	AllocationsTotal *prometheus.CounterVec

	// 動いた在庫数（reason: ALLOCATE / RESTORE / ADJUST）
	StockUnitsMovedTotal *prometheus.CounterVec

	// onlineフラグ再計算
	RecalculationsTotal     prometheus.Counter
	RecalculationRetries    prometheus.Counter
	RecalculationDriftTotal prometheus.Counter

	// 外部への配信失敗（target: redis / kafka）
	PublishFailuresTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTPリクエスト総数",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTPリクエスト処理時間（秒）",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		),
		OrderTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_transitions_total",
				Help: "注文ステータス遷移の件数",
			},
			[]string{"from", "to"},
		),
		AllocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_allocations_total",
				Help: "注文確定時の在庫引当結果",
			},
			[]string{"result"},
		),
		StockUnitsMovedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_units_moved_total",
				Help: "在庫の移動数",
			},
			[]string{"reason"},
		),
		RecalculationsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "online_recalculations_total",
			Help: "onlineフラグ再計算の成功回数",
		}),
		RecalculationRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "online_recalculation_retries_total",
			Help: "onlineフラグ再計算のリトライ回数",
		}),
		RecalculationDriftTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "online_recalculation_drift_total",
			Help: "リトライしても再計算できなかった回数（onlineフラグがずれている可能性）",
		}),
		PublishFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_failures_total",
				Help: "キャッシュ/イベント配信の失敗数",
			},
			[]string{"target"},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Allocation(result string) {
	if m == nil {
		return
	}
	m.AllocationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) UnitsMoved(reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.StockUnitsMovedTotal.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) Recalculated() {
	if m == nil {
		return
	}
	m.RecalculationsTotal.Inc()
}

func (m *Metrics) RecalculationRetry() {
	if m == nil {
		return
	}
	m.RecalculationRetries.Inc()
}

func (m *Metrics) Drift() {
	if m == nil {
		return
	}
	m.RecalculationDriftTotal.Inc()
}

func (m *Metrics) PublishFailed(target string) {
	if m == nil {
		return
	}
	m.PublishFailuresTotal.WithLabelValues(target).Inc()
}
