// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// リポジトリ作成の結果ラベル。失敗時はエラー種別（model.ErrorKind）の文字列を使う。
const (
	ResultCreated = "created"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ワーカー・ミドルウェアから利用する。
type MetricsCollector interface {
	RecordRepositoryCreation(result string)
	RecordProvisionLatency(duration time.Duration)
	RecordSubmissionCreated()
	RecordHTTPStatus(statusCode int)
	RecordReconciled(linked, failed int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	repoCreation     *prometheus.CounterVec
	provisionLatency prometheus.Histogram
	submissions      prometheus.Counter
	httpStatus       *prometheus.CounterVec
	reconciled       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		repoCreation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursegit_repository_creation_total",
			Help: "リポジトリ作成の結果別件数",
		}, []string{"result"}),
		provisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursegit_provision_latency_seconds",
			Help:    "Gitサーバーへのリポジトリ作成呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursegit_submissions_created_total",
			Help: "作成された提出の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursegit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursegit_reconcile_links_total",
			Help: "整合ジョブで処理したユーザー逆参照の件数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.repoCreation,
		c.provisionLatency,
		c.submissions,
		c.httpStatus,
		c.reconciled,
	)

	return c
}

// RecordRepositoryCreation はリポジトリ作成の結果を記録する。
func (c *Collector) RecordRepositoryCreation(result string) {
	c.repoCreation.WithLabelValues(result).Inc()
}

// RecordProvisionLatency はGitサーバー呼び出しのレイテンシを記録する。
func (c *Collector) RecordProvisionLatency(duration time.Duration) {
	c.provisionLatency.Observe(duration.Seconds())
}

// RecordSubmissionCreated は提出の作成を記録する。
func (c *Collector) RecordSubmissionCreated() {
	c.submissions.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordReconciled は整合ジョブの結果を記録する。
func (c *Collector) RecordReconciled(linked, failed int) {
	c.reconciled.WithLabelValues("linked").Add(float64(linked))
	c.reconciled.WithLabelValues("failed").Add(float64(failed))
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

// Nop は何も記録しないMetricsCollector。メトリクスを使わないテストやコマンドで利用する。
type Nop struct{}

func (Nop) RecordRepositoryCreation(string)      {}
func (Nop) RecordProvisionLatency(time.Duration) {}
func (Nop) RecordSubmissionCreated()             {}
func (Nop) RecordHTTPStatus(int)                 {}
func (Nop) RecordReconciled(int, int)            {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
