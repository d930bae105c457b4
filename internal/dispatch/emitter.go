package dispatch

// Emitter delivers outbound events. Implementations must not block and must
// ignore connection ids they do not know.
type Emitter interface {
	// EmitTo sends one event to a single connection.
	EmitTo(connID, event string, payload any)
	// EmitToMany sends one event to each listed connection.
	EmitToMany(connIDs []string, event string, payload any)
	// Broadcast sends one event to every open connection.
	Broadcast(event string, payload any)
}

func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
