// Package probe queries game servers for their current player list and
// capacity. Two backends are provided: the Minecraft Server List Ping
// protocol and the Source Engine Query (A2S) protocol.
package probe

import "context"

// Player is one entry of a snapshot's player sample.
type Player struct {
	ID   string
	Name string
}

// Snapshot is one probe's instantaneous report for a server.
type Snapshot struct {
	MaxPlayers int
	Online     int
	Sample     []Player
}

// Pinger queries a single game server. Implementations must respect the
// context deadline and return an error for any unreachable or malformed
// response; the caller treats both the same way.
type Pinger interface {
	Ping(ctx context.Context, host string, port, version int) (*Snapshot, error)
}
