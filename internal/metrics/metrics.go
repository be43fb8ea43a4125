// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordDirectoryLookup(hit bool)
	RecordVerification(outcome string)
	RecordPayloadRejection(reason string)
	RecordTrade(tradeType string)
	RecordHTTPStatus(statusCode int)
	RecordUpstreamLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	directoryLookups  *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	payloadRejections *prometheus.CounterVec
	trades            *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	upstreamLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		directoryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stashlink_directory_lookups_total",
			Help: "ディレクトリ検索のキャッシュヒット・ミス別の合計数",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stashlink_verifications_total",
			Help: "検証試行の結果別の合計数",
		}, []string{"outcome"}),
		payloadRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stashlink_payload_rejections_total",
			Help: "ペイロード署名検証の拒否理由別の合計数",
		}, []string{"reason"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stashlink_trades_total",
			Help: "取引の種別ごとの合計数",
		}, []string{"type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stashlink_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stashlink_upstream_latency_seconds",
			Help:    "外部APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.directoryLookups,
		c.verifications,
		c.payloadRejections,
		c.trades,
		c.httpStatus,
		c.upstreamLatency,
	)

	return c
}

// RecordDirectoryLookup はディレクトリ検索のキャッシュヒット有無を記録する。
func (c *Collector) RecordDirectoryLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.directoryLookups.WithLabelValues(result).Inc()
}

// RecordVerification は検証試行の結果を記録する。
func (c *Collector) RecordVerification(outcome string) {
	c.verifications.WithLabelValues(outcome).Inc()
}

// RecordPayloadRejection はペイロード署名検証の拒否を理由別に記録する。
func (c *Collector) RecordPayloadRejection(reason string) {
	c.payloadRejections.WithLabelValues(reason).Inc()
}

// RecordTrade は取引を種別ごとに記録する。
func (c *Collector) RecordTrade(tradeType string) {
	c.trades.WithLabelValues(tradeType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency は外部APIのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// InstrumentTransport は外部API向けHTTPクライアントのトランスポートを
// ラップし、レイテンシをヒストグラムに記録する。
func (c *Collector) InstrumentTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := base.RoundTrip(req)
		c.RecordUpstreamLatency(time.Since(start))
		return resp, err
	})
}

// roundTripperFunc は関数をhttp.RoundTripperとして扱うためのアダプタ。
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
