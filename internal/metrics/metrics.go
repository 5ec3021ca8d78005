// Package metrics содержит Prometheus-метрики движка правок.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор счётчиков движка. Все методы допускают nil-получатель,
// поэтому компоненты можно собирать без метрик (в тестах и утилитах).
type Metrics struct {
	blocksChanged  prometheus.Counter
	transactions   *prometheus.CounterVec
	history        *prometheus.CounterVec
	limitHits      prometheus.Counter
	slices         prometheus.Counter
	sliceDuration  prometheus.Histogram
	queued         prometheus.Gauge
	operationsDone *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg.
// Если reg == nil, используется глобальный регистр Prometheus.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		blocksChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockedit",
			Name:      "blocks_changed_total",
			Help:      "Число изменённых блоков, записанных через сессии правки.",
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockedit",
			Name:      "transactions_total",
			Help:      "Зафиксированные транзакции по результату (complete, partial).",
		}, []string{"result"}),
		history: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockedit",
			Name:      "history_replays_total",
			Help:      "Отмены и повторы транзакций.",
		}, []string{"kind"}),
		limitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockedit",
			Name:      "change_limit_hits_total",
			Help:      "Сколько раз правка упёрлась в лимит изменённых блоков.",
		}),
		slices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockedit",
			Subsystem: "scheduler",
			Name:      "slices_total",
			Help:      "Выполненные срезы операций.",
		}),
		sliceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockedit",
			Subsystem: "scheduler",
			Name:      "slice_duration_seconds",
			Help:      "Длительность одного среза операции.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockedit",
			Subsystem: "scheduler",
			Name:      "operations_queued",
			Help:      "Операции в очереди планировщика.",
		}),
		operationsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockedit",
			Subsystem: "scheduler",
			Name:      "operations_finished_total",
			Help:      "Завершённые операции по статусу.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.blocksChanged, m.transactions, m.history, m.limitHits,
		m.slices, m.sliceDuration, m.queued, m.operationsDone)
	return m
}

// BlocksChanged учитывает изменённые блоки
func (m *Metrics) BlocksChanged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.blocksChanged.Add(float64(n))
}

// TransactionCommitted учитывает зафиксированную транзакцию
func (m *Metrics) TransactionCommitted(partial bool) {
	if m == nil {
		return
	}
	result := "complete"
	if partial {
		result = "partial"
	}
	m.transactions.WithLabelValues(result).Inc()
}

// Undo учитывает отмену
func (m *Metrics) Undo() {
	if m != nil {
		m.history.WithLabelValues("undo").Inc()
	}
}

// Redo учитывает повтор
func (m *Metrics) Redo() {
	if m != nil {
		m.history.WithLabelValues("redo").Inc()
	}
}

// LimitHit учитывает срабатывание лимита изменений
func (m *Metrics) LimitHit() {
	if m != nil {
		m.limitHits.Inc()
	}
}

// ObserveSlice учитывает срез операции
func (m *Metrics) ObserveSlice(d time.Duration) {
	if m == nil {
		return
	}
	m.slices.Inc()
	m.sliceDuration.Observe(d.Seconds())
}

// SetQueued выставляет размер очереди планировщика
func (m *Metrics) SetQueued(n int) {
	if m != nil {
		m.queued.Set(float64(n))
	}
}

// OperationFinished учитывает завершение операции
func (m *Metrics) OperationFinished(status string) {
	if m != nil {
		m.operationsDone.WithLabelValues(status).Inc()
	}
}
