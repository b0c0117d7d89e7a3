package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
)

// DefaultMinecraftPort is used when a server address carries no port.
const DefaultMinecraftPort = 25565

const (
	handshakePacketID = 0x00
	statusPacketID    = 0x00
	statusNextState   = 1
	maxStatusLen      = 1 << 21 // status JSON sanity cap
)

// Minecraft speaks the Server List Ping protocol: a TCP handshake with the
// requested protocol version followed by a status request returning a JSON
// document with capacity and a sample of connected players.
type Minecraft struct {
	// Dialer performs the TCP connection; the zero value is usable.
	Dialer net.Dialer
}

// statusResponse is the subset of the status JSON the watcher needs.
type statusResponse struct {
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
		Sample []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"sample"`
	} `json:"players"`
}

// Ping performs one status exchange with the server.
func (m *Minecraft) Ping(ctx context.Context, host string, port, version int) (*Snapshot, error) {
	if port == 0 {
		port = DefaultMinecraftPort
	}

	conn, err := m.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := writeHandshake(conn, host, port, version); err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if err := writePacket(conn, []byte{statusPacketID}); err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}

	raw, err := readStatus(conn)
	if err != nil {
		return nil, fmt.Errorf("status response: %w", err)
	}

	var res statusResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("status json: %w", err)
	}

	snap := &Snapshot{
		MaxPlayers: res.Players.Max,
		Online:     res.Players.Online,
	}
	for _, p := range res.Players.Sample {
		snap.Sample = append(snap.Sample, Player{ID: p.ID, Name: p.Name})
	}

	return snap, nil
}

func writeHandshake(w io.Writer, host string, port, version int) error {
	var body bytes.Buffer
	body.WriteByte(handshakePacketID)
	writeVarInt(&body, version)
	writeVarInt(&body, len(host))
	body.WriteString(host)
	_ = binary.Write(&body, binary.BigEndian, uint16(port))
	writeVarInt(&body, statusNextState)
	return writePacket(w, body.Bytes())
}

// writePacket frames body with its varint length prefix.
func writePacket(w io.Writer, body []byte) error {
	var frame bytes.Buffer
	writeVarInt(&frame, len(body))
	frame.Write(body)
	_, err := w.Write(frame.Bytes())
	return err
}

func readStatus(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	frameLen, err := readVarInt(br)
	if err != nil {
		return nil, err
	}
	if frameLen <= 0 || frameLen > maxStatusLen {
		return nil, fmt.Errorf("bad frame length %d", frameLen)
	}

	packetID, err := readVarInt(br)
	if err != nil {
		return nil, err
	}
	if packetID != statusPacketID {
		return nil, fmt.Errorf("unexpected packet id %#x", packetID)
	}

	strLen, err := readVarInt(br)
	if err != nil {
		return nil, err
	}
	if strLen <= 0 || strLen > maxStatusLen {
		return nil, fmt.Errorf("bad status length %d", strLen)
	}

	raw := make([]byte, strLen)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writeVarInt(buf *bytes.Buffer, v int) {
	u := uint32(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if u == 0 {
			return
		}
	}
}

var errVarIntTooLong = errors.New("varint longer than 5 bytes")

func readVarInt(r io.ByteReader) (int, error) {
	var value uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int(int32(value)), nil
		}
	}
	return 0, errVarIntTooLong
}
