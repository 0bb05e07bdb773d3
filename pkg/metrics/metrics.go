// Package metrics 提供 Prometheus helper，包含 HTTP 基础指标与账本业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/primecredit/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// 业务指标
	DepositsTotal       prometheus.Counter
	WithdrawalsTotal    prometheus.Counter
	CreditIssuedTotal   prometheus.Counter
	RepaymentsTotal     prometheus.Counter
	SharePurchasesTotal prometheus.Counter
	YieldClaimsTotal    prometheus.Counter
	RejectedOpsTotal    prometheus.Counter
	AssetsActive        prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DepositsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "collateral_deposits_total",
			Help:      "Total collateral deposits committed",
		}),
		WithdrawalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "collateral_withdrawals_total",
			Help:      "Total collateral withdrawals committed",
		}),
		CreditIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "credit_issuances_total",
			Help:      "Total credit issuances committed",
		}),
		RepaymentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "credit_repayments_total",
			Help:      "Total credit repayments committed",
		}),
		SharePurchasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "share_purchases_total",
			Help:      "Total asset share purchases committed",
		}),
		YieldClaimsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "yield_claims_total",
			Help:      "Total yield claims committed",
		}),
		RejectedOpsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "rejected_operations_total",
			Help:      "Total operations rejected by invariant checks",
		}),
		AssetsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prime",
			Subsystem: serviceName,
			Name:      "assets_active",
			Help:      "Number of active marketplace assets",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DepositsTotal,
		m.WithdrawalsTotal,
		m.CreditIssuedTotal,
		m.RepaymentsTotal,
		m.SharePurchasesTotal,
		m.YieldClaimsTotal,
		m.RejectedOpsTotal,
		m.AssetsActive,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "starting metrics server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "metrics server exited", "error", err)
		}
	}()
}
