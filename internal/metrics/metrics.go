package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счётчики подсистемы оценок и хранилища.
// Нулевой указатель допустим: все методы тогда ничего не делают.
type Metrics struct {
	marks         *prometheus.CounterVec
	markRetries   prometheus.Counter
	storeFailures *prometheus.CounterVec
}

// New регистрирует счётчики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "school_board",
			Name:      "marks_total",
			Help:      "Mark transitions by resource kind and reaction.",
		}, []string{"kind", "liked"}),
		markRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school_board",
			Name:      "mark_retries_total",
			Help:      "Mark replacements retried after a failed first attempt.",
		}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "school_board",
			Name:      "store_failures_total",
			Help:      "Storage operations that ended with a store failure.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.marks, m.markRetries, m.storeFailures)
	return m
}

// Mark учитывает переход оценки. liked == nil - отмена.
func (m *Metrics) Mark(kind string, liked *bool) {
	if m == nil {
		return
	}
	label := "cancel"
	if liked != nil {
		label = strconv.FormatBool(*liked)
	}
	m.marks.WithLabelValues(kind, label).Inc()
}

func (m *Metrics) MarkRetry() {
	if m == nil {
		return
	}
	m.markRetries.Inc()
}

func (m *Metrics) StoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(op).Inc()
}
