package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics relay 业务指标
type BusinessMetrics struct {
	ActionsTotal       *prometheus.CounterVec
	DebitedYoctoTotal  *prometheus.CounterVec
	DepositYoctoTotal  *prometheus.CounterVec
	SignatureDuration  *prometheus.HistogramVec
	RelayFailuresTotal *prometheus.CounterVec
	SessionKeysRotated prometheus.Counter
	BundlesActivated   prometheus.Counter
	StorageUsageBytes  prometheus.Gauge
}

// Business 未初始化时为 nil, 下面的 Observe* 函数直接忽略
var Business *BusinessMetrics

func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_actions_total",
			Help: "Actions by kind and pipeline status",
		}, []string{"kind", "status"}),
		DebitedYoctoTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_debited_yocto_total",
			Help: "Amount debited from app balances (yoctoNEAR)",
		}, []string{"app_id"}),
		DepositYoctoTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_deposit_yocto_total",
			Help: "Amount deposited to app balances (yoctoNEAR)",
		}, []string{"app_id"}),
		SignatureDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_signature_duration_seconds",
			Help:    "Round trip to the threshold signing service",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),
		RelayFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_failures_total",
			Help: "Failed actions after the debit, by reason",
		}, []string{"reason"}),
		SessionKeysRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_session_keys_rotated_total",
			Help: "Session key rotations",
		}),
		BundlesActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_bundles_activated_total",
			Help: "Bundles registered",
		}),
		StorageUsageBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "relay_storage_usage_bytes",
			Help: "Committed state size used for the storage deposit",
		}),
	}
}

func ObserveAction(kind, status string) {
	if Business != nil {
		Business.ActionsTotal.WithLabelValues(kind, status).Inc()
	}
}

func ObserveDebit(appID string, yocto float64) {
	if Business != nil && yocto > 0 {
		Business.DebitedYoctoTotal.WithLabelValues(appID).Add(yocto)
	}
}

func ObserveDeposit(appID string, yocto float64) {
	if Business != nil && yocto > 0 {
		Business.DepositYoctoTotal.WithLabelValues(appID).Add(yocto)
	}
}

func ObserveSignature(kind string, elapsed time.Duration) {
	if Business != nil {
		Business.SignatureDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func ObserveRelayFailure(reason string) {
	if Business != nil {
		Business.RelayFailuresTotal.WithLabelValues(reason).Inc()
	}
}

func ObserveRotation() {
	if Business != nil {
		Business.SessionKeysRotated.Inc()
	}
}

func ObserveBundle() {
	if Business != nil {
		Business.BundlesActivated.Inc()
	}
}

func SetStorageUsage(bytes int64) {
	if Business != nil {
		Business.StorageUsageBytes.Set(float64(bytes))
	}
}
