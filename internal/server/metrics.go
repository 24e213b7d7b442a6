package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics - счетчики сервера. Регистрируются в собственном реестре, чтобы
// несколько экземпляров Server могли сосуществовать в одном процессе.
type metrics struct {
	registry      *prometheus.Registry
	tasksCreated  *prometheus.CounterVec
	tasksFinished *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	taskDuration  prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		tasksCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgstats_tasks_created_total",
				Help: "Number of analysis tasks created, by kind.",
			},
			[]string{"kind"},
		),
		tasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgstats_tasks_finished_total",
				Help: "Number of analysis tasks finished, by final status.",
			},
			[]string{"status"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgstats_cache_lookups_total",
				Help: "Result cache lookups by hash, by outcome.",
			},
			[]string{"outcome"},
		),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tgstats_task_duration_seconds",
			Help:    "Time spent analyzing uploaded exports.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tasksCreated,
		m.tasksFinished,
		m.cacheLookups,
		m.taskDuration,
	)
	return m
}
