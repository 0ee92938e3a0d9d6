package ipc

import (
	"bytes"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	original := NewMessage(MsgGetSettings, 42, []byte(`{"hello":"world"}`))

	var buf bytes.Buffer
	if err := original.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	if got.Header.Type != MsgGetSettings {
		t.Errorf("Type = %#x, want %#x", got.Header.Type, MsgGetSettings)
	}
	if got.Header.RequestID != 42 {
		t.Errorf("RequestID = %d, want 42", got.Header.RequestID)
	}
	if string(got.Payload) != `{"hello":"world"}` {
		t.Errorf("Payload = %s", got.Payload)
	}
}

func TestReadMessageRejectsBadMagic(t *testing.T) {
	buf := bytes.Repeat([]byte{0xff}, HeaderSize+4)
	if _, err := ReadMessage(bytes.NewReader(buf)); err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestReadMessageRejectsEmptyStream(t *testing.T) {
	if _, err := ReadMessage(bytes.NewReader(nil)); err == nil {
		t.Error("expected error reading from empty stream")
	}
}
