package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/relaydesk/telephony/internal/consent"
	"github.com/relaydesk/telephony/internal/observability/metrics"
	"github.com/relaydesk/telephony/internal/telephony"
	"github.com/relaydesk/telephony/pkg/logging"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// SmsReplyHandler ingests inbound messages and records consent changes when
// the body is a carrier keyword. Every reply is answered with empty TwiML so
// the provider sends nothing back to the caller.
type SmsReplyHandler struct {
	consent   consentRecorder
	detector  *consent.Detector
	authToken string
	logger    *logging.Logger
	metrics   *metrics.TelephonyMetrics
}

// SmsReplyConfig wires the inbound message handler.
type SmsReplyConfig struct {
	Consent   consentRecorder
	Detector  *consent.Detector
	AuthToken string
	Logger    *logging.Logger
	Metrics   *metrics.TelephonyMetrics
}

func NewSmsReplyHandler(cfg SmsReplyConfig) *SmsReplyHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Detector == nil {
		cfg.Detector = consent.NewDetector()
	}
	return &SmsReplyHandler{
		consent:   cfg.Consent,
		detector:  cfg.Detector,
		authToken: cfg.AuthToken,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Handle processes POST /webhooks/twilio/sms-reply.
func (h *SmsReplyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.authToken != "" && !telephony.ValidateWebhookRequest(r, h.authToken, telephony.BuildAbsoluteURL(r)) {
		h.logger.Warn("rejected sms reply webhook: invalid signature", "remote_ip", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("unparseable sms reply payload", "error", err)
	}

	evt := telephony.NormalizeMessageEvent(r.PostForm)

	// WhatsApp replies carry a channel prefix on the raw address.
	channel := "sms"
	if strings.HasPrefix(strings.TrimSpace(r.PostForm.Get("From")), "whatsapp:") {
		channel = "whatsapp"
	}

	if status, ok := h.detector.Detect(evt.Body); ok && evt.From != "" {
		log := h.logger.With("e164", evt.From, "channel", channel, "status", string(status))
		if h.consent != nil {
			if err := h.consent.Record(r.Context(), evt.From, channel, status, consent.SourceForStatus(status)); err != nil {
				log.Error("failed to record consent change", "error", err)
			} else {
				log.Info("consent keyword recorded")
			}
		}
		h.metrics.ObserveInbound("sms_reply", "consent_"+string(status))
	} else {
		h.metrics.ObserveInbound("sms_reply", "received")
	}

	h.metrics.ObserveWebhookLatency("sms_reply", time.Since(start).Seconds())
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(emptyTwiML))
}
