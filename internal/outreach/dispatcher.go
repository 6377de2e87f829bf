package outreach

import (
	"context"
	"time"

	"github.com/relaydesk/telephony/internal/consent"
	"github.com/relaydesk/telephony/internal/observability/metrics"
	"github.com/relaydesk/telephony/pkg/logging"
)

type consentChecker interface {
	CurrentStatus(ctx context.Context, e164 string) (consent.Status, bool, error)
}

// Dispatcher orchestrates re-engagement for a missed call: consent gate,
// dedupe-key computation, WhatsApp first, SMS only when WhatsApp fails.
type Dispatcher struct {
	primary  ChannelSender
	fallback ChannelSender
	consent  consentChecker
	logger   *logging.Logger
	metrics  *metrics.TelephonyMetrics
	now      func() time.Time
}

// DispatcherConfig wires the dispatcher.
type DispatcherConfig struct {
	Primary  ChannelSender
	Fallback ChannelSender
	Consent  consentChecker
	Logger   *logging.Logger
	Metrics  *metrics.TelephonyMetrics
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		consent:  cfg.Consent,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
}

// DedupeKey buckets a moment to hour granularity in UTC. Repeated missed-call
// webhook retries within the same clock hour collapse into one outreach
// attempt per channel.
func DedupeKey(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format("2006-01-02T15:04Z")
}

// HandleMissedCall attempts re-engagement outreach for a missed call. At most
// two provider calls are made: WhatsApp, then SMS only if WhatsApp did not
// get the message accepted. Failure after the fallback is terminal; outcomes
// live in the outreach event log.
func (d *Dispatcher) HandleMissedCall(ctx context.Context, callSid, fromNumber string) {
	if fromNumber == "" {
		d.logger.Warn("missed call without caller number, skipping outreach", "call_sid", callSid)
		return
	}

	if d.consent != nil {
		status, known, err := d.consent.CurrentStatus(ctx, fromNumber)
		if err != nil {
			// Unknown consent is treated as unconfirmed opt-in, same as a
			// caller we have never messaged.
			d.logger.Error("consent lookup failed", "error", err, "call_sid", callSid)
		} else if known && status == consent.StatusRevoked {
			d.logger.Info("caller opted out, skipping outreach", "call_sid", callSid)
			d.metrics.ObserveOutreach("none", "skipped_opt_out")
			return
		}
	}

	req := Request{
		CallSid:   callSid,
		To:        fromNumber,
		DedupeKey: DedupeKey(d.now()),
	}

	if d.primary != nil && d.primary.Send(ctx, req) {
		return
	}

	if d.fallback == nil {
		d.logger.Warn("primary outreach failed and no fallback configured", "call_sid", callSid)
		return
	}
	d.logger.Info("falling back to secondary outreach channel",
		"call_sid", callSid,
		"channel", d.fallback.Channel(),
	)
	if !d.fallback.Send(ctx, req) {
		d.logger.Warn("outreach exhausted for call", "call_sid", callSid)
	}
}
