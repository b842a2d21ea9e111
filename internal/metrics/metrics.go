package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BatchesDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_batches_dispatched_total",
			Help: "Total batch jobs dispatched to the gateway",
		},
	)

	RecipientsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_recipients_sent_total",
			Help: "Total recipients accepted by the gateway",
		},
	)

	RecipientsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_recipients_failed_total",
			Help: "Total recipients rejected or failed",
		},
	)

	RefundsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_quota_refunds_total",
			Help: "Total quota refunds for exhausted retries",
		},
	)

	QuotaApplyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_quota_apply_failures_total",
			Help: "Quota debits that failed after the send succeeded",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		BatchesDispatched,
		RecipientsSent,
		RecipientsFailed,
		RefundsIssued,
		QuotaApplyFailures,
	)
}
