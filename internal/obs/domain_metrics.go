package obs

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics collects order-taking counters exposed next to the HTTP metrics.
type DomainMetrics struct {
	OrdersSubmitted     *prometheus.CounterVec
	TicketsEnqueued     prometheus.Counter
	ReconcileDrops      prometheus.Counter
	ComboCustomizations prometheus.Counter
}

var domainMetrics *DomainMetrics

// MustRegisterDomainMetrics registers domain counters once per process.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if domainMetrics != nil {
		return domainMetrics
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders submitted to the backend, labelled by order type and result.",
		}, []string{"tipo", "result"}),
		TicketsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kitchen_tickets_enqueued_total",
			Help:      "Kitchen print tickets enqueued on the task queue.",
		}),
		ReconcileDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_dropped_lines_total",
			Help:      "Persisted order lines dropped during reconciliation because they no longer resolve against the catalog.",
		}),
		ComboCustomizations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "combo_customizations_total",
			Help:      "Combo instance replacements applied by waiters.",
		}),
	}
	reg.MustRegister(m.OrdersSubmitted, m.TicketsEnqueued, m.ReconcileDrops, m.ComboCustomizations)
	domainMetrics = m
	return m
}

// Domain returns the registered domain metrics, if any.
func Domain() *DomainMetrics {
	return domainMetrics
}
