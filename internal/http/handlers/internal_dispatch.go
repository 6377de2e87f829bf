package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/relaydesk/telephony/pkg/logging"
)

// InternalDispatchHandler lets trusted internal services trigger missed-call
// outreach directly, bypassing the provider webhook path. It sits behind the
// shared-secret middleware; this handler only validates the payload.
type InternalDispatchHandler struct {
	dispatcher missedCallDispatcher
	logger     *logging.Logger
}

func NewInternalDispatchHandler(dispatcher missedCallDispatcher, logger *logging.Logger) *InternalDispatchHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &InternalDispatchHandler{dispatcher: dispatcher, logger: logger}
}

type internalDispatchRequest struct {
	CallSid string `json:"call_sid"`
	From    string `json:"from"`
}

// Handle processes POST /internal/outreach/dispatch.
func (h *InternalDispatchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req internalDispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.CallSid == "" || req.From == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "call_sid and from are required"})
		return
	}

	h.logger.Info("internal outreach dispatch requested", "call_sid", req.CallSid)
	h.dispatcher.HandleMissedCall(r.Context(), req.CallSid, req.From)
	respondJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}
