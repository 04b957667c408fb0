// Package metrics reports cache events to Prometheus.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/memo-cache/types"
)

const (
	eventHit      = "hit"
	eventMiss     = "miss"
	eventEviction = "eviction"
	eventExpire   = "expire"
	eventFlush    = "flush"
)

// PrometheusConfig names the counters. Cache becomes a constant label so
// several memoized functions can share one registry.
type PrometheusConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
	Cache     string `yaml:"cache" json:"cache" validate:"required"`
}

// Prometheus implements types.Metrics with one counter vector labelled by event.
type Prometheus struct {
	events *prometheus.CounterVec

	hit, miss, eviction, expire, flush prometheus.Counter
}

var _ types.Metrics = (*Prometheus)(nil)

func NewPrometheus(reg prometheus.Registerer, cfg PrometheusConfig) (*Prometheus, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "memocache"
	}
	if cfg.Cache == "" {
		return nil, types.Errorf(types.ErrInvalidOption, "prometheus metrics need a cache name")
	}

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "events_total",
			Help:        "Cache events by kind: hit, miss, eviction, expire, flush.",
			ConstLabels: prometheus.Labels{"cache": cfg.Cache},
		},
		[]string{"event"},
	)

	if err := reg.Register(events); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, types.WrapError(err, "register cache metrics")
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, types.WrapError(err, "register cache metrics")
		}
		events = existing
	}

	return &Prometheus{
		events:   events,
		hit:      events.WithLabelValues(eventHit),
		miss:     events.WithLabelValues(eventMiss),
		eviction: events.WithLabelValues(eventEviction),
		expire:   events.WithLabelValues(eventExpire),
		flush:    events.WithLabelValues(eventFlush),
	}, nil
}

func (p *Prometheus) Hit()      { p.hit.Inc() }
func (p *Prometheus) Miss()     { p.miss.Inc() }
func (p *Prometheus) Eviction() { p.eviction.Inc() }
func (p *Prometheus) Expire()   { p.expire.Inc() }
func (p *Prometheus) Flush()    { p.flush.Inc() }
