package telephony

// MinAnsweredSeconds is the talk time below which a completed call is still
// treated as unanswered (pocket dials, instant voicemail hangups).
const MinAnsweredSeconds = 10

// IsMissed reports whether a call in the given terminal state should trigger
// re-engagement outreach.
func IsMissed(status CallStatus, talkSeconds int) bool {
	switch status {
	case CallStatusNoAnswer, CallStatusBusy, CallStatusFailed:
		return true
	case CallStatusCompleted:
		return talkSeconds < MinAnsweredSeconds
	default:
		return false
	}
}
