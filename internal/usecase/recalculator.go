package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// onlineフラグを外部（Redis等）へ配る
type AvailabilityCache interface {
	SetFlags(ctx context.Context, flags map[model.StockKey]int64) error
}

type noopAvailabilityCache struct{}

func (noopAvailabilityCache) SetFlags(context.Context, map[model.StockKey]int64) error { return nil }

// 全件再計算で1Txに入れるタプル数
const recalcBatchSize = 500

// 物理在庫の合計から online 擬似ロケーションの0/1フラグを作り直す。
type Recalculator struct {
	tx          repo.TransactionManager
	locations   []model.Location
	cache       AvailabilityCache
	metrics     *metrics.Metrics
	log         *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

type RecalculatorOptions struct {
	Locations   []model.Location
	Cache       AvailabilityCache
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	MaxAttempts int
	Backoff     time.Duration
}

func NewRecalculator(tx repo.TransactionManager, opts RecalculatorOptions) *Recalculator {
	r := &Recalculator{
		tx:          tx,
		locations:   opts.Locations,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
	if r.cache == nil {
		r.cache = noopAvailabilityCache{}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

// 指定タプルだけ再計算する（1回だけ、1Tx）。
// 物理在庫の行が1つもないタプルは対象外。
func (r *Recalculator) Recalculate(ctx context.Context, keys []model.StockKey) (map[model.StockKey]int64, error) {
	keys = uniqueKeys(keys)
	flags := make(map[model.StockKey]int64, len(keys))
	if len(keys) == 0 {
		return flags, nil
	}

	err := r.tx.WithinTx(ctx, func(tr repo.TxRepos) error {
		totals, err := tr.Stocks().SumPhysical(ctx, keys, r.locations)
		if err != nil {
			return err
		}
		for _, k := range keys {
			total, ok := totals[k]
			if !ok {
				continue
			}
			flag := model.OnlineFlag(total)
			if err := tr.Stocks().UpsertOnline(ctx, k, flag); err != nil {
				return err
			}
			flags[k] = flag
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// リトライ付き。最後まで失敗したら RECALCULATION_DRIFT としてログに残し、そのエラーを返す。
// 呼び出し側の注文更新は巻き戻さない。
func (r *Recalculator) RecalculateWithRetry(ctx context.Context, keys []model.StockKey) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		flags, err := r.Recalculate(ctx, keys)
		if err == nil {
			r.metrics.Recalculated()
			r.publish(ctx, flags)
			return nil
		}
		lastErr = err

		if attempt == r.maxAttempts || ctx.Err() != nil {
			break
		}
		r.metrics.RecalculationRetry()
		r.log.Warn("online recalculation failed, retrying",
			"attempt", attempt,
			"tuples", len(keys),
			"err", err,
		)
		if !sleepCtx(ctx, r.backoff*time.Duration(attempt)) {
			break
		}
	}

	r.metrics.Drift()
	r.log.Error("online recalculation gave up",
		"kind", KindRecalculationDrift,
		"tuples", keyStrings(keys),
		"err", lastErr,
	)
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Kind:    KindRecalculationDrift,
		Message: "online availability recalculation failed",
		Err:     lastErr,
	}
}

// 物理在庫を持つ全タプルを再計算する。処理したタプル数を返す。
func (r *Recalculator) RecalculateAll(ctx context.Context) (int, error) {
	var keys []model.StockKey
	err := r.tx.WithinTx(ctx, func(tr repo.TxRepos) error {
		var err error
		keys, err = tr.Stocks().ListKeysWithPhysical(ctx, r.locations)
		return err
	})
	if err != nil {
		return 0, dbError(err)
	}

	done := 0
	for start := 0; start < len(keys); start += recalcBatchSize {
		end := min(start+recalcBatchSize, len(keys))
		if err := r.RecalculateWithRetry(ctx, keys[start:end]); err != nil {
			return done, err
		}
		done = end
	}
	return done, nil
}

func (r *Recalculator) publish(ctx context.Context, flags map[model.StockKey]int64) {
	if len(flags) == 0 {
		return
	}
	if err := r.cache.SetFlags(ctx, flags); err != nil {
		r.metrics.PublishFailed("redis")
		r.log.Error("availability cache update failed", "tuples", len(flags), "err", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// 重複を除いてロック順（StockKey.Less）に並べる
func uniqueKeys(keys []model.StockKey) []model.StockKey {
	seen := make(map[model.StockKey]bool, len(keys))
	out := make([]model.StockKey, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func keyStrings(keys []model.StockKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}
