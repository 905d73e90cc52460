// Package metrics exposes Prometheus counters and histograms for provider
// round trips and RPC traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// LLMBuckets covers inference latencies from 100ms to 10 minutes
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

// Collector implements types.MetricsCollector on its own registry so that
// several collectors can coexist in one process (tests).
type Collector struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerTokens   *prometheus.CounterVec
	rpcMessages      *prometheus.CounterVec
	toolCalls        *prometheus.CounterVec
}

var _ types.MetricsCollector = (*Collector)(nil)

// NewCollector creates and registers all collectors
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_delegator_provider_requests_total",
				Help: "Provider requests",
			},
			[]string{"provider", "model", "outcome"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_delegator_provider_latency_seconds",
				Help:    "Provider latency",
				Buckets: LLMBuckets,
			},
			[]string{"provider", "model"},
		),
		providerTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_delegator_provider_tokens_total",
				Help: "Tokens reported by the provider",
			},
			[]string{"provider", "model"},
		),
		rpcMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_delegator_rpc_messages_total",
				Help: "JSON-RPC messages handled",
			},
			[]string{"method", "outcome"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_delegator_tool_calls_total",
				Help: "Tool calls",
			},
			[]string{"tool", "outcome"},
		),
	}

	c.registry.MustRegister(
		c.providerRequests,
		c.providerLatency,
		c.providerTokens,
		c.rpcMessages,
		c.toolCalls,
	)
	return c
}

// Registry returns the registry all collectors are registered on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordProviderCall implements types.MetricsCollector
func (c *Collector) RecordProviderCall(provider types.ProviderType, model string, outcome string, latency time.Duration, tokens *int) {
	c.providerRequests.WithLabelValues(string(provider), model, outcome).Inc()
	c.providerLatency.WithLabelValues(string(provider), model).Observe(latency.Seconds())
	if tokens != nil && *tokens > 0 {
		c.providerTokens.WithLabelValues(string(provider), model).Add(float64(*tokens))
	}
}

// RecordRPC counts one handled message. outcome is "ok", "error", "notification",
// "malformed" or "oversized".
func (c *Collector) RecordRPC(method, outcome string) {
	c.rpcMessages.WithLabelValues(method, outcome).Inc()
}

// RecordToolCall counts one tools/call by tool name
func (c *Collector) RecordToolCall(tool, outcome string) {
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
}
