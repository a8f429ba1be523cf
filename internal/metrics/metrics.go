// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

const namespace = "nurseshift"

// 生成结果
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusFailure   = "failure"
)

// Metrics 指标集合，使用独立的注册表
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	activeGenerations  prometheus.Gauge

	draftScore   prometheus.Histogram
	fairnessGini *prometheus.GaugeVec
	understaffed *prometheus.CounterVec
	refineSwaps  prometheus.Counter
}

// New 创建并注册所有指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求延迟",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_total",
			Help:      "草案批次生成次数",
		}, []string{"status"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "草案批次生成耗时",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		activeGenerations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_generations",
			Help:      "正在进行的生成任务数",
		}),
		draftScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "draft_score",
			Help:      "草案公平性分数（越低越好）",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		fairnessGini: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fairness_gini",
			Help:      "最近一份草案的基尼系数",
		}, []string{"metric_type"}),
		understaffed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "understaffed_days_total",
			Help:      "人数不足的班次数",
		}, []string{"shift"}),
		refineSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refine_swaps_total",
			Help:      "公平性调整中接受的交换次数",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.generations,
		m.generationDuration,
		m.activeGenerations,
		m.draftScore,
		m.fairnessGini,
		m.understaffed,
		m.refineSwaps,
	)
	return m
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordRequest 记录请求指标
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// StartGeneration 标记生成开始，返回结束时调用的函数
func (m *Metrics) StartGeneration() func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.activeGenerations.Inc()
	return func(status string) {
		m.activeGenerations.Dec()
		m.generations.WithLabelValues(status).Inc()
		m.generationDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveDraft 记录单份草案的质量指标
func (m *Metrics) ObserveDraft(d *draft.Draft) {
	if m == nil || d == nil {
		return
	}
	m.draftScore.Observe(d.Score)
	if d.Fairness != nil {
		m.fairnessGini.WithLabelValues("work_days").Set(d.Fairness.WorkDaysGini)
		m.fairnessGini.WithLabelValues("night_shifts").Set(d.Fairness.NightShiftGini)
		m.fairnessGini.WithLabelValues("weekend_off").Set(d.Fairness.WeekendOffGini)
	}
	if d.Refine != nil {
		m.refineSwaps.Add(float64(d.Refine.Swaps))
	}
	for _, w := range d.Warnings {
		m.understaffed.WithLabelValues(shiftLabel(w.Shift)).Inc()
	}
}

func shiftLabel(k model.ShiftKind) string {
	switch k {
	case model.ShiftDay:
		return "day"
	case model.ShiftNight:
		return "night"
	default:
		return "off"
	}
}
