package handlers

import (
	"net/http"
	"time"

	"github.com/relaydesk/telephony/internal/observability/metrics"
	"github.com/relaydesk/telephony/internal/telephony"
	"github.com/relaydesk/telephony/pkg/logging"
)

// CallStatusHandler ingests call lifecycle callbacks, persists the latest
// state per call sid, and hands missed calls to the outreach dispatcher.
type CallStatusHandler struct {
	store      callStore
	dispatcher missedCallDispatcher
	authToken  string
	logger     *logging.Logger
	metrics    *metrics.TelephonyMetrics
}

// CallStatusConfig wires the call status handler.
type CallStatusConfig struct {
	Store      callStore
	Dispatcher missedCallDispatcher
	// AuthToken enables provider signature verification. Empty disables the
	// gate, for local development only.
	AuthToken string
	Logger    *logging.Logger
	Metrics   *metrics.TelephonyMetrics
}

func NewCallStatusHandler(cfg CallStatusConfig) *CallStatusHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &CallStatusHandler{
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		authToken:  cfg.AuthToken,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Handle processes POST /webhooks/twilio/call-status. Internal failures are
// logged but still acknowledged with 200 so the provider stops retrying; only
// a signature mismatch returns 403.
func (h *CallStatusHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.authToken != "" && !telephony.ValidateWebhookRequest(r, h.authToken, telephony.BuildAbsoluteURL(r)) {
		h.logger.Warn("rejected call status webhook: invalid signature", "remote_ip", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("unparseable call status payload", "error", err)
	}

	evt := telephony.NormalizeCallEvent(r.PostForm)
	if evt.CallSid == "" {
		h.logger.Warn("call status webhook without call sid")
		h.metrics.ObserveInbound("call_status", "missing_sid")
		respondText(w, http.StatusOK, "ok")
		return
	}

	log := h.logger.With("call_sid", evt.CallSid, "status", string(evt.Status))

	if h.store != nil {
		if err := h.store.UpsertCall(r.Context(), telephony.CallRecordFromEvent(evt)); err != nil {
			log.Error("failed to persist call state", "error", err)
		}
	}

	if telephony.IsMissed(evt.Status, evt.TalkSeconds) {
		log.Info("missed call detected", "talk_seconds", evt.TalkSeconds)
		if h.dispatcher != nil {
			h.dispatcher.HandleMissedCall(r.Context(), evt.CallSid, evt.From)
		}
	}

	h.metrics.ObserveInbound("call_status", string(evt.Status))
	h.metrics.ObserveWebhookLatency("call_status", time.Since(start).Seconds())
	respondText(w, http.StatusOK, "ok")
}
