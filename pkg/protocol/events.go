package protocol

// Event names pushed to /v1/events subscribers.
const (
	EventReplySent       = "reply.sent"
	EventReplyFailed     = "reply.failed"
	EventReplySkipped    = "reply.skipped"
	EventHandoffRequired = "handoff.required"
	EventHealth          = "health"
	EventShutdown        = "shutdown"

	// Store reload events (internal, not forwarded to WS clients).
	EventCacheInvalidate = "cache.invalidate"
)
