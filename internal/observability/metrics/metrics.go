package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the WhatsApp bot.
type BotMetrics struct {
	inboundTotal    *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	deliveryTotal   *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
}

// NewBotMetrics registers the collectors on reg, or on the default registerer when reg is nil.
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsbot",
			Subsystem: "messaging",
			Name:      "inbound_total",
			Help:      "Inbound WhatsApp messages by type and outcome",
		}, []string{"type", "outcome"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsbot",
			Subsystem: "guard",
			Name:      "rejections_total",
			Help:      "Inbound messages dropped by the duplicate/rate guard",
		}, []string{"reason"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsbot",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Outbound WhatsApp sends by kind and status",
		}, []string{"kind", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsbot",
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Booking operations by outcome",
		}, []string{"outcome"}),
		deliveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whatsbot",
			Subsystem: "messaging",
			Name:      "delivery_status_total",
			Help:      "Delivery receipts for outbound messages by status",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whatsbot",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.guardRejections, m.outboundTotal, m.bookingsTotal, m.deliveryTotal, m.webhookLatency)
	return m
}

func (m *BotMetrics) ObserveInbound(messageType, outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(messageType, outcome).Inc()
}

func (m *BotMetrics) ObserveGuardRejection(reason string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(reason).Inc()
}

func (m *BotMetrics) ObserveOutbound(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

// ObserveBooking records outcomes such as created, create_failed, canceled, cancel_not_found.
func (m *BotMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) ObserveDeliveryStatus(status string) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(status).Inc()
}

func (m *BotMetrics) ObserveWebhookLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(route).Observe(seconds)
}
