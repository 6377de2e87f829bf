package outreach

import (
	"context"
	"fmt"

	"github.com/relaydesk/telephony/internal/observability/metrics"
	"github.com/relaydesk/telephony/internal/telephony"
	"github.com/relaydesk/telephony/internal/twilio"
	"github.com/relaydesk/telephony/pkg/logging"
)

// Request identifies one outreach attempt.
type Request struct {
	CallSid   string
	To        string
	DedupeKey string
}

// ChannelSender attempts a single send on one channel and reports whether the
// provider accepted the message. Failures are logged, never propagated.
type ChannelSender interface {
	Channel() Channel
	Send(ctx context.Context, req Request) bool
}

type messageSender interface {
	SendMessage(ctx context.Context, msg twilio.SendMessageRequest) (*twilio.SendMessageResponse, error)
}

type eventStore interface {
	UpsertEvent(ctx context.Context, evt Event) error
}

// SenderConfig wires one channel sender.
type SenderConfig struct {
	Channel Channel
	Client  messageSender
	Store   eventStore
	// From is the sending address for this channel (E.164; the whatsapp:
	// prefix is applied automatically for the WhatsApp channel).
	From                string
	MessagingServiceSid string
	// ContentSid selects a rich provider template instead of the plain-text
	// fallback body.
	ContentSid string
	BookingURL string
	Logger     *logging.Logger
	Metrics    *metrics.TelephonyMetrics
}

// TwilioSender sends re-engagement messages over one provider channel and
// records every attempt to the outreach log.
type TwilioSender struct {
	channel             Channel
	client              messageSender
	store               eventStore
	from                string
	messagingServiceSid string
	contentSid          string
	bookingURL          string
	logger              *logging.Logger
	metrics             *metrics.TelephonyMetrics
}

func NewTwilioSender(cfg SenderConfig) *TwilioSender {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &TwilioSender{
		channel:             cfg.Channel,
		client:              cfg.Client,
		store:               cfg.Store,
		from:                cfg.From,
		messagingServiceSid: cfg.MessagingServiceSid,
		contentSid:          cfg.ContentSid,
		bookingURL:          cfg.BookingURL,
		logger:              cfg.Logger,
		metrics:             cfg.Metrics,
	}
}

var _ ChannelSender = (*TwilioSender)(nil)

func (s *TwilioSender) Channel() Channel {
	return s.channel
}

// Send attempts the message and upserts an outreach event row either way.
// Returns true only when the provider accepted the message.
func (s *TwilioSender) Send(ctx context.Context, req Request) bool {
	if s.client == nil {
		s.logger.Warn("outreach sender not configured", "channel", s.channel)
		s.record(ctx, req, EventStatusFailed, map[string]string{"error": "sender not configured"})
		s.metrics.ObserveOutreach(string(s.channel), string(EventStatusFailed))
		return false
	}

	msg := s.buildMessage(req)
	if msg.To == "" {
		s.logger.Warn("outreach destination unusable", "channel", s.channel, "to", req.To)
		s.record(ctx, req, EventStatusFailed, map[string]string{"error": "destination unusable"})
		s.metrics.ObserveOutreach(string(s.channel), string(EventStatusFailed))
		return false
	}

	resp, err := s.client.SendMessage(ctx, msg)
	if err != nil {
		s.logger.Warn("outreach send failed",
			"channel", s.channel,
			"call_sid", req.CallSid,
			"error", err,
		)
		s.record(ctx, req, EventStatusFailed, map[string]string{"error": err.Error()})
		s.metrics.ObserveOutreach(string(s.channel), string(EventStatusFailed))
		return false
	}

	s.logger.Info("outreach message sent",
		"channel", s.channel,
		"call_sid", req.CallSid,
		"message_id", resp.SID,
	)
	s.record(ctx, req, EventStatusSent, map[string]string{"message_id": resp.SID})
	s.metrics.ObserveOutreach(string(s.channel), string(EventStatusSent))
	return true
}

func (s *TwilioSender) buildMessage(req Request) twilio.SendMessageRequest {
	msg := twilio.SendMessageRequest{
		MessagingServiceSid: s.messagingServiceSid,
	}
	switch s.channel {
	case ChannelWhatsApp:
		msg.To = telephony.WhatsAppAddress(req.To)
		msg.From = telephony.WhatsAppAddress(s.from)
	default:
		msg.To = telephony.NormalizeE164(req.To)
		msg.From = telephony.NormalizeE164(s.from)
	}
	if s.contentSid != "" {
		msg.ContentSid = s.contentSid
		msg.ContentVariables = map[string]string{"1": s.bookingURL}
		return msg
	}
	msg.Body = missedCallBody(s.bookingURL)
	return msg
}

func (s *TwilioSender) record(ctx context.Context, req Request, status EventStatus, payload map[string]string) {
	if s.store == nil {
		return
	}
	evt := Event{
		CallSid:   req.CallSid,
		Channel:   s.channel,
		Status:    status,
		DedupeKey: req.DedupeKey,
		Payload:   payload,
	}
	if err := s.store.UpsertEvent(ctx, evt); err != nil {
		s.logger.Error("failed to record outreach event",
			"channel", s.channel,
			"call_sid", req.CallSid,
			"error", err,
		)
	}
}

func missedCallBody(bookingURL string) string {
	if bookingURL == "" {
		return "Sorry we just missed your call! Reply here and we'll get you taken care of. Reply STOP to opt out."
	}
	return fmt.Sprintf("Sorry we just missed your call! Grab a time that works for you here: %s. Or just reply and we'll get you taken care of. Reply STOP to opt out.", bookingURL)
}
