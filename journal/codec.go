package journal

import (
	"encoding/json"
	"fmt"

	"github.com/g960059/tmuxcc"
)

// Events are stored as a kind discriminant plus the JSON encoding of the
// concrete struct. Byte payloads (pane output) ride through json's base64
// and come back bit-identical.

func encodeEvent(ev tmuxcc.Event) (string, []byte, error) {
	kind, err := eventKind(ev)
	if err != nil {
		return "", nil, err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s event: %w", kind, err)
	}
	return kind, payload, nil
}

func eventKind(ev tmuxcc.Event) (string, error) {
	switch ev.(type) {
	case tmuxcc.Guarded:
		return "guarded", nil
	case tmuxcc.ClientDetached:
		return "client_detached", nil
	case tmuxcc.ClientSessionChanged:
		return "client_session_changed", nil
	case tmuxcc.ConfigError:
		return "config_error", nil
	case tmuxcc.Continue:
		return "continue", nil
	case tmuxcc.ExtendedOutput:
		return "extended_output", nil
	case tmuxcc.Exit:
		return "exit", nil
	case tmuxcc.LayoutChange:
		return "layout_change", nil
	case tmuxcc.Message:
		return "message", nil
	case tmuxcc.Output:
		return "output", nil
	case tmuxcc.PaneModeChanged:
		return "pane_mode_changed", nil
	case tmuxcc.PasteBufferChanged:
		return "paste_buffer_changed", nil
	case tmuxcc.PasteBufferDeleted:
		return "paste_buffer_deleted", nil
	case tmuxcc.Pause:
		return "pause", nil
	case tmuxcc.SessionChanged:
		return "session_changed", nil
	case tmuxcc.SessionRenamed:
		return "session_renamed", nil
	case tmuxcc.SessionsChanged:
		return "sessions_changed", nil
	case tmuxcc.SessionWindowChanged:
		return "session_window_changed", nil
	case tmuxcc.SubscriptionChanged:
		return "subscription_changed", nil
	case tmuxcc.UnlinkedWindowAdd:
		return "unlinked_window_add", nil
	case tmuxcc.UnlinkedWindowClose:
		return "unlinked_window_close", nil
	case tmuxcc.UnlinkedWindowRenamed:
		return "unlinked_window_renamed", nil
	case tmuxcc.WindowAdd:
		return "window_add", nil
	case tmuxcc.WindowClose:
		return "window_close", nil
	case tmuxcc.WindowPaneChanged:
		return "window_pane_changed", nil
	case tmuxcc.WindowRenamed:
		return "window_renamed", nil
	default:
		// Begin/End/Error never leave the feeder, so a journal should
		// never see them.
		return "", fmt.Errorf("%w: %T", ErrUnknownKind, ev)
	}
}

func decodeAs[T tmuxcc.Event](payload []byte) (tmuxcc.Event, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode %T event: %w", ev, err)
	}
	return ev, nil
}

func decodeEvent(kind string, payload []byte) (tmuxcc.Event, error) {
	switch kind {
	case "guarded":
		return decodeAs[tmuxcc.Guarded](payload)
	case "client_detached":
		return decodeAs[tmuxcc.ClientDetached](payload)
	case "client_session_changed":
		return decodeAs[tmuxcc.ClientSessionChanged](payload)
	case "config_error":
		return decodeAs[tmuxcc.ConfigError](payload)
	case "continue":
		return decodeAs[tmuxcc.Continue](payload)
	case "extended_output":
		return decodeAs[tmuxcc.ExtendedOutput](payload)
	case "exit":
		return decodeAs[tmuxcc.Exit](payload)
	case "layout_change":
		return decodeAs[tmuxcc.LayoutChange](payload)
	case "message":
		return decodeAs[tmuxcc.Message](payload)
	case "output":
		return decodeAs[tmuxcc.Output](payload)
	case "pane_mode_changed":
		return decodeAs[tmuxcc.PaneModeChanged](payload)
	case "paste_buffer_changed":
		return decodeAs[tmuxcc.PasteBufferChanged](payload)
	case "paste_buffer_deleted":
		return decodeAs[tmuxcc.PasteBufferDeleted](payload)
	case "pause":
		return decodeAs[tmuxcc.Pause](payload)
	case "session_changed":
		return decodeAs[tmuxcc.SessionChanged](payload)
	case "session_renamed":
		return decodeAs[tmuxcc.SessionRenamed](payload)
	case "sessions_changed":
		return decodeAs[tmuxcc.SessionsChanged](payload)
	case "session_window_changed":
		return decodeAs[tmuxcc.SessionWindowChanged](payload)
	case "subscription_changed":
		return decodeAs[tmuxcc.SubscriptionChanged](payload)
	case "unlinked_window_add":
		return decodeAs[tmuxcc.UnlinkedWindowAdd](payload)
	case "unlinked_window_close":
		return decodeAs[tmuxcc.UnlinkedWindowClose](payload)
	case "unlinked_window_renamed":
		return decodeAs[tmuxcc.UnlinkedWindowRenamed](payload)
	case "window_add":
		return decodeAs[tmuxcc.WindowAdd](payload)
	case "window_close":
		return decodeAs[tmuxcc.WindowClose](payload)
	case "window_pane_changed":
		return decodeAs[tmuxcc.WindowPaneChanged](payload)
	case "window_renamed":
		return decodeAs[tmuxcc.WindowRenamed](payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
