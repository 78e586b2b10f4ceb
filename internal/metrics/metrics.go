package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcomes.
const (
	OutcomeLive       = "live"
	OutcomeSimulated  = "simulated"
	OutcomeUnreadable = "unreadable"
	OutcomeDenied     = "denied"
	OutcomeNoImage    = "no_image"
	OutcomeInProgress = "in_progress"
	OutcomeBusy       = "busy"
)

type Recorder interface {
	IncAnalysis(outcome string)
	ObserveProvider(duration time.Duration, ok bool)
	IncUpdate(kind string)
	IncSendFailure()
}

type prometheusRecorder struct {
	analyses         *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	updates          *prometheus.CounterVec
	sendFailures     prometheus.Counter
}

// New registers the bot collectors on reg.
func New(reg prometheus.Registerer) Recorder {
	factory := promauto.With(reg)
	return &prometheusRecorder{
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_analysis_requests_total",
			Help: "Analysis requests by outcome",
		}, []string{"outcome"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bot_provider_request_duration_seconds",
			Help:    "Duration of analysis provider calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"result"}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_webhook_updates_total",
			Help: "Telegram updates received by kind",
		}, []string{"kind"}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_send_failures_total",
			Help: "Outbound messages that could not be delivered",
		}),
	}
}

func (m *prometheusRecorder) IncAnalysis(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

func (m *prometheusRecorder) ObserveProvider(duration time.Duration, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.providerDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *prometheusRecorder) IncUpdate(kind string) {
	m.updates.WithLabelValues(kind).Inc()
}

func (m *prometheusRecorder) IncSendFailure() {
	m.sendFailures.Inc()
}

// Noop discards everything; used when metrics are disabled and in tests.
func Noop() Recorder { return noopRecorder{} }

type noopRecorder struct{}

func (noopRecorder) IncAnalysis(string)                  {}
func (noopRecorder) ObserveProvider(time.Duration, bool) {}
func (noopRecorder) IncUpdate(string)                    {}
func (noopRecorder) IncSendFailure()                     {}
