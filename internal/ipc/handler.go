package ipc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pabueco/typls/internal/settings"
)

// HistoryProvider supplies the expansion audit trail for MsgGetHistory.
// Satisfied by internal/audit.Store; kept as an interface here so this
// package never imports the (optional, SQLite-backed) audit package.
type HistoryProvider interface {
	Recent(limit int) ([]HistoryEntry, error)
}

// DaemonHandler is the Handler the daemon registers with Server. It
// serves every control-socket operation by reading or replacing the
// shared settings.Store.
type DaemonHandler struct {
	store        *settings.Store
	settingsPath string
	reload       func() error
	history      HistoryProvider
}

// NewDaemonHandler creates a DaemonHandler. reload is called for
// MsgReloadSettings and should re-read the settings file from disk and
// publish it to store; history may be nil if no audit trail is configured.
func NewDaemonHandler(store *settings.Store, settingsPath string, reload func() error, history HistoryProvider) *DaemonHandler {
	return &DaemonHandler{store: store, settingsPath: settingsPath, reload: reload, history: history}
}

// HandleMessage dispatches req to the method implementing its MessageType.
func (h *DaemonHandler) HandleMessage(ctx context.Context, req *Message) (*Message, error) {
	switch req.Header.Type {
	case MsgPing:
		return NewMessage(MsgPong, req.Header.RequestID, nil), nil
	case MsgGetSettings:
		return h.handleGetSettings(req)
	case MsgSetSettings:
		return h.handleSetSettings(req)
	case MsgGetDefaults:
		return h.handleGetDefaults(req)
	case MsgReloadSettings:
		return h.handleReloadSettings(req)
	case MsgGetSettingsPath:
		return h.handleGetSettingsPath(req)
	case MsgGetHistory:
		return h.handleGetHistory(req)
	default:
		return nil, fmt.Errorf("unknown message type %#x", req.Header.Type)
	}
}

func (h *DaemonHandler) handleGetSettings(req *Message) (*Message, error) {
	body, err := json.Marshal(h.store.Current())
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return NewMessage(MsgGetSettingsResp, req.Header.RequestID, body), nil
}

func (h *DaemonHandler) handleSetSettings(req *Message) (*Message, error) {
	var setReq SetSettingsRequest
	if err := json.Unmarshal(req.Payload, &setReq); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	if err := settings.ValidateDocument(setReq.Settings); err != nil {
		return nil, err
	}
	var s settings.Settings
	if err := json.Unmarshal(setReq.Settings, &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	h.store.Replace(s)
	return NewMessage(MsgSetSettingsResp, req.Header.RequestID, nil), nil
}

func (h *DaemonHandler) handleGetDefaults(req *Message) (*Message, error) {
	body, err := json.Marshal(settings.Default())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	return NewMessage(MsgGetDefaultsResp, req.Header.RequestID, body), nil
}

func (h *DaemonHandler) handleReloadSettings(req *Message) (*Message, error) {
	if h.reload == nil {
		return nil, fmt.Errorf("reload not configured")
	}
	if err := h.reload(); err != nil {
		return nil, err
	}
	return NewMessage(MsgSetSettingsResp, req.Header.RequestID, nil), nil
}

func (h *DaemonHandler) handleGetSettingsPath(req *Message) (*Message, error) {
	body, err := json.Marshal(SettingsPathResponse{Path: h.settingsPath})
	if err != nil {
		return nil, err
	}
	return NewMessage(MsgGetSettingsPathResp, req.Header.RequestID, body), nil
}

func (h *DaemonHandler) handleGetHistory(req *Message) (*Message, error) {
	if h.history == nil {
		body, err := json.Marshal(HistoryResponse{})
		if err != nil {
			return nil, err
		}
		return NewMessage(MsgGetHistoryResp, req.Header.RequestID, body), nil
	}

	var histReq HistoryRequest
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &histReq); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
	}
	if histReq.Limit <= 0 {
		histReq.Limit = 50
	}

	entries, err := h.history.Recent(histReq.Limit)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(HistoryResponse{Entries: entries})
	if err != nil {
		return nil, err
	}
	return NewMessage(MsgGetHistoryResp, req.Header.RequestID, body), nil
}
