package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_committed_total",
		Help: "Sale batches committed.",
	})

	SalesAborted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_aborted_total",
		Help: "Sale batches aborted, by reason.",
	}, []string{"reason"})
)
