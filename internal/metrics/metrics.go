// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/storyslide/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とダウンロードプロキシから利用する。
type MetricsCollector interface {
	RecordStoryCreated(source string)
	RecordClassification(mediaType model.MediaType)
	RecordDownloadSuccess(bytes int64)
	RecordDownloadFailure(reason string)
	RecordUpstreamStatus(statusCode int)
	RecordDownloadLatency(duration time.Duration)
	RecordSlidesImported(count int)
}

// ストーリー作成元のラベル値
const (
	SourceAPI    = "api"
	SourceImport = "import"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storiesCreated  *prometheus.CounterVec
	classifications *prometheus.CounterVec
	downloadSuccess prometheus.Counter
	downloadFail    *prometheus.CounterVec
	downloadBytes   prometheus.Counter
	upstreamStatus  *prometheus.CounterVec
	downloadLatency prometheus.Histogram
	slidesImported  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyslide_stories_created_total",
			Help: "作成されたストーリーの合計数",
		}, []string{"source"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyslide_media_classifications_total",
			Help: "メディア種別判定の結果別件数",
		}, []string{"media_type"}),
		downloadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyslide_download_success_total",
			Help: "メディアダウンロード成功の合計数",
		}),
		downloadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyslide_download_fail_total",
			Help: "メディアダウンロード失敗の理由別件数",
		}, []string{"reason"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyslide_download_bytes_total",
			Help: "プロキシしたメディアの合計バイト数",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyslide_upstream_http_status_total",
			Help: "リモート取得時のHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		downloadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storyslide_download_latency_seconds",
			Help:    "メディアダウンロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		slidesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyslide_slides_imported_total",
			Help: "フィードインポートで生成されたスライドの合計数",
		}),
	}

	reg.MustRegister(
		c.storiesCreated,
		c.classifications,
		c.downloadSuccess,
		c.downloadFail,
		c.downloadBytes,
		c.upstreamStatus,
		c.downloadLatency,
		c.slidesImported,
	)

	return c
}

// RecordStoryCreated はストーリー作成を作成元ごとに記録する。
func (c *Collector) RecordStoryCreated(source string) {
	c.storiesCreated.WithLabelValues(source).Inc()
}

// RecordClassification はメディア種別判定の結果を記録する。
func (c *Collector) RecordClassification(mediaType model.MediaType) {
	c.classifications.WithLabelValues(string(mediaType)).Inc()
}

// RecordDownloadSuccess はダウンロード成功と転送バイト数を記録する。
func (c *Collector) RecordDownloadSuccess(bytes int64) {
	c.downloadSuccess.Inc()
	c.downloadBytes.Add(float64(bytes))
}

// RecordDownloadFailure はダウンロード失敗を理由ごとに記録する。
func (c *Collector) RecordDownloadFailure(reason string) {
	c.downloadFail.WithLabelValues(reason).Inc()
}

// RecordUpstreamStatus はリモートのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordDownloadLatency はダウンロードのレイテンシを記録する。
func (c *Collector) RecordDownloadLatency(duration time.Duration) {
	c.downloadLatency.Observe(duration.Seconds())
}

// RecordSlidesImported はフィードインポートで生成したスライド数を記録する。
func (c *Collector) RecordSlidesImported(count int) {
	c.slidesImported.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordStoryCreated(string)            {}
func (NopCollector) RecordClassification(model.MediaType) {}
func (NopCollector) RecordDownloadSuccess(int64)          {}
func (NopCollector) RecordDownloadFailure(string)         {}
func (NopCollector) RecordUpstreamStatus(int)             {}
func (NopCollector) RecordDownloadLatency(time.Duration)  {}
func (NopCollector) RecordSlidesImported(int)             {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
