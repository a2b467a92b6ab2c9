// Package metrics exports channel lifecycle measurements to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/rpcchannel/request"
)

// Observer implements channel.Observer with Prometheus collectors labelled by channel name.
type Observer struct {
	poolSize   *prometheus.GaugeVec
	submitted  prometheus.Counter
	destroyed  prometheus.Counter
	responses  *prometheus.CounterVec
	reconnects prometheus.Counter
}

// New creates an observer for the named channel and registers it with registerer when
// it is not nil.
func New(channel string, registerer prometheus.Registerer) (*Observer, error) {
	labels := prometheus.Labels{"channel": channel}
	ret := &Observer{
		poolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "rpcchannel_pool_requests",
			Help:        "Number of requests held by a pool",
			ConstLabels: labels,
		}, []string{"pool"}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rpcchannel_submitted_total",
			Help:        "Total number of submitted requests",
			ConstLabels: labels,
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rpcchannel_destroyed_total",
			Help:        "Total number of destroyed requests",
			ConstLabels: labels,
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rpcchannel_responses_total",
			Help:        "Total number of processed responses",
			ConstLabels: labels,
		}, []string{"status"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rpcchannel_reconnects_total",
			Help:        "Total number of successful reconnects",
			ConstLabels: labels,
		}),
	}
	if registerer == nil {
		return ret, nil
	}
	for _, collector := range ret.Collectors() {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Collectors returns every collector owned by the observer.
func (o *Observer) Collectors() []prometheus.Collector {
	return []prometheus.Collector{o.poolSize, o.submitted, o.destroyed, o.responses, o.reconnects}
}

func (o *Observer) OnPoolSize(pool request.Pool, size int) {
	o.poolSize.WithLabelValues(pool.String()).Set(float64(size))
}

func (o *Observer) OnSubmit() {
	o.submitted.Inc()
}

func (o *Observer) OnDestroy(count int) {
	o.destroyed.Add(float64(count))
}

func (o *Observer) OnResponse(failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	o.responses.WithLabelValues(status).Inc()
}

func (o *Observer) OnReconnect() {
	o.reconnects.Inc()
}
