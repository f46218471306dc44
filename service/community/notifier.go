package community

// Notifier fans community events out to connected clients. Publishing is
// best-effort; implementations must never surface failures to the caller.
type Notifier interface {
	// Emit broadcasts to every connected client.
	Emit(event string, data interface{})
	// EmitToTopic broadcasts to clients subscribed to one topic's room.
	EmitToTopic(topicID uint, event string, data interface{})
}

// NoopNotifier is used where realtime delivery is disabled (production runs
// without the community socket layer).
type NoopNotifier struct{}

func (NoopNotifier) Emit(event string, data interface{})                  {}
func (NoopNotifier) EmitToTopic(topicID uint, event string, data interface{}) {}
