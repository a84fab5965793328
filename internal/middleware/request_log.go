package middleware

import (
	"log/slog"
	"time"

	"storefront/internal/metrics"

	"github.com/labstack/echo/v4"
)

// handlerが5xxの原因を入れておくキー（レスポンスには出さない）
const CtxErrorCauseKey = "error_cause"

// 1リクエスト1行のアクセスログとHTTPメトリクス。
// RequestIDミドルウェアの後ろに置く。
func RequestLogger(log *slog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// echoのエラーハンドラでステータスを確定させる
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)

			// パスは登録ルート（/orders/:id）で集計する
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.ObserveHTTP(req.Method, path, res.Status, latency)

			attrs := []any{
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"latency_ms", latency.Milliseconds(),
			}
			if id, ok := c.Get(CtxUserIDKey).(int64); ok {
				attrs = append(attrs, "user_id", id)
			}
			if err != nil {
				attrs = append(attrs, "err", err)
			}
			if cause, ok := c.Get(CtxErrorCauseKey).(error); ok {
				attrs = append(attrs, "cause", cause.Error())
			}

			switch {
			case res.Status >= 500:
				log.Error("request", attrs...)
			case res.Status >= 400:
				log.Warn("request", attrs...)
			default:
				log.Info("request", attrs...)
			}
			return nil
		}
	}
}
