package log

// Event names a structured occurrence consumed by downstream log pipelines.
type Event string

const (
	EventPolicyChosen    Event = "policy_chosen"
	EventBackendChosen   Event = "backend_chosen"
	EventQueryReceived   Event = "query_received"
	EventQueryServed     Event = "query_served"
	EventRefreshDegraded Event = "refresh_degraded"
	EventRequestDropped  Event = "request_dropped"
)

// EventKey is the field under which the event name is recorded.
const EventKey = "event"

// Emit records ev on l with the given fields. Degradation and drop events
// are logged at warn level, everything else at info.
func Emit(l Logger, ev Event, fields map[string]any) {
	f := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f[EventKey] = string(ev)

	switch ev {
	case EventRefreshDegraded, EventRequestDropped:
		l.Warn(f, string(ev))
	default:
		l.Info(f, string(ev))
	}
}
