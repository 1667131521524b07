package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 仮押さえ操作の総数（result: created, committed, expired, insufficient, not_found, mismatch）
	HoldsTotal *prometheus.CounterVec

	// 予約確定の総数（kind: hold, direct / status: success, insufficient, invalid）
	ReservationsTotal *prometheus.CounterVec

	// レベルロック内の処理時間（operation: create_hold, commit_hold, reserve_direct, sweep）
	CriticalSectionDuration *prometheus.HistogramVec

	// レベルごとの空席数
	AvailableSeats *prometheus.GaugeVec

	// 有効な仮押さえ数
	ActiveHolds prometheus.Gauge
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_holds_total",
				Help: "Total number of seat hold operations by result",
			},
			[]string{"result"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation attempts",
			},
			[]string{"kind", "status"},
		),
		CriticalSectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seat_critical_section_duration_seconds",
				Help:    "Time spent holding seat level locks",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"operation"},
		),
		AvailableSeats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "available_seats",
				Help: "Current number of free seats per level",
			},
			[]string{"level"},
		),
		ActiveHolds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_seat_holds",
				Help: "Current number of active seat holds",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HoldsTotal,
		m.ReservationsTotal,
		m.CriticalSectionDuration,
		m.AvailableSeats,
		m.ActiveHolds,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
