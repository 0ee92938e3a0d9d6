// Package ipc is the control-socket protocol between expandd and its
// clients (expandctl, any host-provided settings UI). Every message is a
// fixed-size header followed by a JSON payload, length-prefixed so a
// client only ever needs to read exactly as many bytes as were written.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// ProtocolMagic distinguishes our framing from a stray connection to
	// the same socket path by something else entirely.
	ProtocolMagic = 0x54594c53 // "TYLS"

	// ProtocolVersion changes only when the header or message shape
	// changes incompatibly; payload evolution (new JSON fields) does not
	// require a bump.
	ProtocolVersion = 1

	// HeaderSize is the wire size, in bytes, of the header fields that
	// precede the 4-byte payload length (magic, version, type, request ID
	// and one reserved byte); a full header on the wire is HeaderSize+4.
	HeaderSize = 12

	// maxPayloadSize bounds how much a malicious or confused peer can
	// make the server allocate for a single message.
	maxPayloadSize = 8 * 1024 * 1024
)

// MessageType identifies the request or response carried by a Message.
type MessageType uint16

const (
	MsgPing  MessageType = 0x0001
	MsgPong  MessageType = 0x0002
	MsgError MessageType = 0x0003

	MsgGetSettings     MessageType = 0x0100
	MsgGetSettingsResp MessageType = 0x0101
	MsgSetSettings     MessageType = 0x0102
	MsgSetSettingsResp MessageType = 0x0103
	MsgGetDefaults     MessageType = 0x0104
	MsgGetDefaultsResp MessageType = 0x0105
	MsgReloadSettings  MessageType = 0x0106

	MsgGetSettingsPath     MessageType = 0x0200
	MsgGetSettingsPathResp MessageType = 0x0201

	MsgGetHistory     MessageType = 0x0300
	MsgGetHistoryResp MessageType = 0x0301
)

// Header is the fixed-size preamble of every message on the wire.
type Header struct {
	Magic     uint32
	Version   uint8
	Type      MessageType
	RequestID uint32
	Length    uint32
}

// Message pairs a Header with its JSON payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage builds a Message ready to Write.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write serializes the header then the payload to w.
func (m *Message) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize+4)
	binary.BigEndian.PutUint32(buf[0:4], m.Header.Magic)
	buf[4] = m.Header.Version
	binary.BigEndian.PutUint16(buf[5:7], uint16(m.Header.Type))
	binary.BigEndian.PutUint32(buf[7:11], m.Header.RequestID)
	// buf[11] reserved for future flags.
	binary.BigEndian.PutUint32(buf[12:16], m.Header.Length)
	if _, err := w.Write(buf); err != nil {
		return err
	}

	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads one complete Message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	buf := make([]byte, HeaderSize+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Type:      MessageType(binary.BigEndian.Uint16(buf[5:7])),
		RequestID: binary.BigEndian.Uint32(buf[7:11]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}
	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("ipc: bad magic %#x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("ipc: unsupported protocol version %d", h.Version)
	}
	if h.Length > maxPayloadSize {
		return nil, fmt.Errorf("ipc: payload too large: %d bytes", h.Length)
	}

	m := &Message{Header: h}
	if h.Length > 0 {
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ErrorPayload is the body of a MsgError response.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SetSettingsRequest carries a full settings document to replace the
// daemon's current one. It is validated exactly as a file load would be.
type SetSettingsRequest struct {
	Settings json.RawMessage `json:"settings"`
}

// HistoryRequest asks for the most recent audited expansions.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one row of the expansion audit trail (internal/audit).
type HistoryEntry struct {
	Timestamp   string `json:"timestamp"`
	Abbr        string `json:"abbr"`
	ExpansionID string `json:"expansionId"`
	ProcessPath string `json:"processPath,omitempty"`
}

// HistoryResponse is the body of a MsgGetHistoryResp.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// SettingsPathResponse tells a client where the settings file lives, for
// an "open in file manager" style command.
type SettingsPathResponse struct {
	Path string `json:"path"`
}
