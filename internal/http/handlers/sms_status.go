package handlers

import (
	"net/http"
	"time"

	"github.com/relaydesk/telephony/internal/observability/metrics"
	"github.com/relaydesk/telephony/internal/telephony"
	"github.com/relaydesk/telephony/pkg/logging"
)

// SmsStatusHandler ingests outbound message delivery callbacks and upserts
// the latest status per message sid.
type SmsStatusHandler struct {
	store     smsStatusStore
	authToken string
	logger    *logging.Logger
	metrics   *metrics.TelephonyMetrics
}

// SmsStatusConfig wires the delivery status handler.
type SmsStatusConfig struct {
	Store     smsStatusStore
	AuthToken string
	Logger    *logging.Logger
	Metrics   *metrics.TelephonyMetrics
}

func NewSmsStatusHandler(cfg SmsStatusConfig) *SmsStatusHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SmsStatusHandler{
		store:     cfg.Store,
		authToken: cfg.AuthToken,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Handle processes POST /webhooks/twilio/sms-status.
func (h *SmsStatusHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.authToken != "" && !telephony.ValidateWebhookRequest(r, h.authToken, telephony.BuildAbsoluteURL(r)) {
		h.logger.Warn("rejected sms status webhook: invalid signature", "remote_ip", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("unparseable sms status payload", "error", err)
	}

	evt := telephony.NormalizeMessageEvent(r.PostForm)
	if evt.MessageSid == "" {
		h.logger.Warn("sms status webhook without message sid")
		h.metrics.ObserveInbound("sms_status", "missing_sid")
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if evt.ErrorCode != "" {
		h.logger.Warn("message delivery reported an error",
			"message_sid", evt.MessageSid,
			"status", evt.Status,
			"error_code", evt.ErrorCode,
			"error_message", evt.ErrorMessage,
		)
	}

	if h.store != nil {
		if err := h.store.UpsertSmsStatus(r.Context(), telephony.SmsStatusFromEvent(evt)); err != nil {
			h.logger.Error("failed to persist sms status", "message_sid", evt.MessageSid, "error", err)
		}
	}

	h.metrics.ObserveInbound("sms_status", evt.Status)
	h.metrics.ObserveWebhookLatency("sms_status", time.Since(start).Seconds())
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
