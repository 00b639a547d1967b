package ports

// Replier sends a chat line back to the stream. Implementations must be safe
// to call from any thread and must not block the caller on network I/O.
type Replier interface {
	Reply(channel, message string)
}
