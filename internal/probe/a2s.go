package probe

import (
	"context"
	"time"

	"github.com/woozymasta/a2s/pkg/a2s"
)

// DefaultSourcePort is the usual Source Engine query port.
const DefaultSourcePort = 27015

// Source queries Source-engine servers over the A2S protocol. A2S_PLAYER
// exposes no stable player id, so display names double as ids; the protocol
// version argument is ignored since A2S carries none.
type Source struct {
	// BufferSize is the UDP response buffer, matching the server MTU.
	BufferSize uint16

	// Timeout bounds a query when the context carries no deadline.
	Timeout time.Duration
}

// Ping performs an A2S_INFO and A2S_PLAYER exchange with the server.
func (s *Source) Ping(ctx context.Context, host string, port, _ int) (*Snapshot, error) {
	if port == 0 {
		port = DefaultSourcePort
	}

	client, err := a2s.New(host, port)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	if s.BufferSize > 0 {
		client.BufferSize = s.BufferSize
	}
	client.Timeout = s.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = time.Until(deadline)
	}

	info, err := client.GetInfo()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		MaxPlayers: int(info.MaxPlayers),
		Online:     int(info.Players),
	}

	players, err := client.GetPlayers()
	if err != nil {
		// Some servers answer A2S_INFO but refuse A2S_PLAYER; capacity
		// alone is still a valid snapshot.
		return snap, nil
	}
	snap.Sample = sourceSample(players)

	return snap, nil
}

// sourceSample converts an A2S_PLAYER response into sample entries, skipping
// connecting players that have no name yet.
func sourceSample(players *[]a2s.Player) []Player {
	if players == nil {
		return nil
	}

	var sample []Player
	for _, p := range *players {
		if p.Name == "" {
			continue
		}
		sample = append(sample, Player{ID: p.Name, Name: p.Name})
	}
	return sample
}
