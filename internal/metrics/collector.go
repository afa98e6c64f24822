package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 工作流指标收集器
// =============================================================================

// Collector 实现 workflow.MetricsRecorder，把节点、路由与运行结果导出为 Prometheus 指标
type Collector struct {
	// 节点指标
	nodeExecutionsTotal *prometheus.CounterVec
	nodeDuration        *prometheus.HistogramVec

	// 路由指标
	routeDecisionsTotal *prometheus.CounterVec

	// 运行指标
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runCycles   prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 在默认注册表上创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegisterer(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegisterer 在指定注册表上创建指标收集器
func NewCollectorWithRegisterer(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.nodeExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_node_executions_total",
			Help:      "Total number of workflow node executions",
		},
		[]string{"node", "status"},
	)

	c.nodeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_node_duration_seconds",
			Help:      "Workflow node execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"node"},
	)

	c.routeDecisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_route_decisions_total",
			Help:      "Total number of routing decisions after critique",
		},
		[]string{"decision"},
	)

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow runs by outcome",
		},
		[]string{"status"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	c.runCycles = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_cycles",
			Help:      "Research cycles consumed per completed run",
			Buckets:   prometheus.LinearBuckets(0, 1, 6),
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordNode 记录单个节点执行
func (c *Collector) RecordNode(node string, duration time.Duration, err error) {
	c.nodeExecutionsTotal.WithLabelValues(node, outcome(err)).Inc()
	c.nodeDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordRoute 记录评审后的路由决策
func (c *Collector) RecordRoute(decision string) {
	c.routeDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordRun 记录一次运行。失败的运行不计入轮数分布。
func (c *Collector) RecordRun(status string, cycles int, duration time.Duration, err error) {
	if err != nil {
		status = "error"
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	if err == nil {
		c.runCycles.Observe(float64(cycles))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
