// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	clipboardsCreated prometheus.Counter
	cardsCreated      prometheus.Counter
	cleanupDeleted    *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	requestDuration   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		clipboardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipshare_clipboards_created_total",
			Help: "作成されたクリップボードの合計数",
		}),
		cardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipshare_cards_created_total",
			Help: "作成されたカードの合計数",
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipshare_cleanup_deleted_total",
			Help: "クリーンアップポリシー別に削除されたクリップボードの合計数",
		}, []string{"policy"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipshare_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipshare_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.clipboardsCreated,
		c.cardsCreated,
		c.cleanupDeleted,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordClipboardCreated はクリップボード作成を記録する。
func (c *Collector) RecordClipboardCreated() {
	c.clipboardsCreated.Inc()
}

// RecordCardCreated はカード作成を記録する。
func (c *Collector) RecordCardCreated() {
	c.cardsCreated.Inc()
}

// RecordCleanupDeleted はクリーンアップによる削除件数をポリシー別に記録する。
// policyは"idle"または"empty"。
func (c *Collector) RecordCleanupDeleted(policy string, count int) {
	c.cleanupDeleted.WithLabelValues(policy).Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
