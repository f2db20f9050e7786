// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 通知ディスパッチャやリマインダーワーカーから利用する。
type MetricsCollector interface {
	RecordPushSent()
	RecordPushFailure(reason string)
	RecordPushPruned(count int)
	RecordDispatchLatency(duration time.Duration)
	RecordReminderFired()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	pushSent        prometheus.Counter
	pushFail        *prometheus.CounterVec
	pushPruned      prometheus.Counter
	dispatchLatency prometheus.Histogram
	remindersFired  prometheus.Counter
	storeRecoveries prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchup_push_sent_total",
			Help: "Push配信成功の合計数",
		}),
		pushFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchup_push_fail_total",
			Help: "Push配信失敗の合計数（失敗理由別）",
		}, []string{"reason"}),
		pushPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchup_push_pruned_total",
			Help: "削除された無効購読の合計数",
		}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchup_dispatch_latency_seconds",
			Help:    "通知ファンアウト1回のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchup_reminders_fired_total",
			Help: "発火したリマインダー通知の合計数",
		}),
		storeRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchup_store_recoveries_total",
			Help: "バックアップからのストレージ復旧の合計数",
		}),
	}

	reg.MustRegister(
		c.pushSent,
		c.pushFail,
		c.pushPruned,
		c.dispatchLatency,
		c.remindersFired,
		c.storeRecoveries,
	)

	return c
}

// RecordPushSent はPush配信成功を記録する。
func (c *Collector) RecordPushSent() {
	c.pushSent.Inc()
}

// RecordPushFailure はPush配信失敗を失敗理由付きで記録する。
func (c *Collector) RecordPushFailure(reason string) {
	c.pushFail.WithLabelValues(reason).Inc()
}

// RecordPushPruned は削除された無効購読数を記録する。
func (c *Collector) RecordPushPruned(count int) {
	c.pushPruned.Add(float64(count))
}

// RecordDispatchLatency はファンアウトのレイテンシを記録する。
func (c *Collector) RecordDispatchLatency(duration time.Duration) {
	c.dispatchLatency.Observe(duration.Seconds())
}

// RecordReminderFired はリマインダー発火を記録する。
func (c *Collector) RecordReminderFired() {
	c.remindersFired.Inc()
}

// RecordStoreRecovery はバックアップからのストレージ復旧を記録する。
func (c *Collector) RecordStoreRecovery() {
	c.storeRecoveries.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
