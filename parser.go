package tmuxcc

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLine recognises a single control mode line (without its trailing
// newline) and extracts its typed fields. Notification headers are ASCII;
// %output and %extended-output payloads stay raw bytes end to end.
func parseLine(line []byte) (Event, error) {
	s := string(line)
	verb, rest, hasRest := strings.Cut(s, " ")
	switch verb {
	case "%begin":
		t, n, f, err := parseGuardFields(rest)
		if err != nil {
			return nil, err
		}
		return Begin{Timestamp: t, Number: n, Flags: f}, nil
	case "%end":
		t, n, f, err := parseGuardFields(rest)
		if err != nil {
			return nil, err
		}
		return End{Timestamp: t, Number: n, Flags: f}, nil
	case "%error":
		t, n, f, err := parseGuardFields(rest)
		if err != nil {
			return nil, err
		}
		return Error{Timestamp: t, Number: n, Flags: f}, nil
	case "%client-detached":
		name, err := parseWordField(rest, "client name")
		if err != nil {
			return nil, err
		}
		return ClientDetached{ClientName: name}, nil
	case "%client-session-changed":
		clientTok, rest, _ := strings.Cut(rest, " ")
		if clientTok == "" {
			return nil, fmt.Errorf("missing client name")
		}
		clientName, err := Unvis(clientTok)
		if err != nil {
			return nil, err
		}
		sessionTok, rest, ok := strings.Cut(rest, " ")
		session, err := parseSessionID(sessionTok)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("missing session name")
		}
		sessionName, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return ClientSessionChanged{ClientName: clientName, Session: session, SessionName: sessionName}, nil
	case "%config-error":
		msg, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return ConfigError{Error: msg}, nil
	case "%continue":
		pane, err := parsePaneField(rest)
		if err != nil {
			return nil, err
		}
		return Continue{Pane: pane}, nil
	case "%exit":
		if !hasRest {
			return Exit{}, nil
		}
		reason := rest
		return Exit{Reason: &reason}, nil
	case "%extended-output":
		paneTok, payload, _ := strings.Cut(rest, " ")
		pane, err := parsePaneID(paneTok)
		if err != nil {
			return nil, err
		}
		text, err := UnvisBytes([]byte(payload))
		if err != nil {
			return nil, err
		}
		return ExtendedOutput{Pane: pane, Text: text}, nil
	case "%layout-change":
		windowTok, rest, _ := strings.Cut(rest, " ")
		window, err := parseWindowID(windowTok)
		if err != nil {
			return nil, err
		}
		layoutTok, rest, _ := strings.Cut(rest, " ")
		if layoutTok == "" {
			return nil, fmt.Errorf("missing layout")
		}
		layout, err := Unvis(layoutTok)
		if err != nil {
			return nil, err
		}
		ev := LayoutChange{Window: window, Layout: layout}
		if rest != "" {
			visible, rest, _ := strings.Cut(rest, " ")
			ev.VisibleLayout = &visible
			if rest != "" {
				flags, rest, _ := strings.Cut(rest, " ")
				if rest != "" {
					return nil, fmt.Errorf("trailing layout-change fields %q", rest)
				}
				ev.RawFlags = &flags
			}
		}
		return ev, nil
	case "%message":
		msg, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return Message{Message: msg}, nil
	case "%output":
		paneTok, payload, _ := strings.Cut(rest, " ")
		pane, err := parsePaneID(paneTok)
		if err != nil {
			return nil, err
		}
		text, err := UnvisBytes([]byte(payload))
		if err != nil {
			return nil, err
		}
		return Output{Pane: pane, Text: text}, nil
	case "%pane-mode-changed":
		pane, err := parsePaneField(rest)
		if err != nil {
			return nil, err
		}
		return PaneModeChanged{Pane: pane}, nil
	case "%paste-buffer-changed":
		buffer, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return PasteBufferChanged{Buffer: buffer}, nil
	case "%paste-buffer-deleted":
		buffer, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return PasteBufferDeleted{Buffer: buffer}, nil
	case "%pause":
		pane, err := parsePaneField(rest)
		if err != nil {
			return nil, err
		}
		return Pause{Pane: pane}, nil
	case "%session-changed":
		sessionTok, rest, _ := strings.Cut(rest, " ")
		session, err := parseSessionID(sessionTok)
		if err != nil {
			return nil, err
		}
		// tmux can rename sessions to names with spaces; the wire grammar
		// stays a single word and rejects the rest.
		name, err := parseWordField(rest, "session name")
		if err != nil {
			return nil, err
		}
		return SessionChanged{Session: session, Name: name}, nil
	case "%session-renamed":
		name, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return SessionRenamed{Name: name}, nil
	case "%session-window-changed":
		sessionTok, rest, _ := strings.Cut(rest, " ")
		session, err := parseSessionID(sessionTok)
		if err != nil {
			return nil, err
		}
		window, err := parseWindowField(rest)
		if err != nil {
			return nil, err
		}
		return SessionWindowChanged{Session: session, Window: window}, nil
	case "%sessions-changed":
		if hasRest {
			return nil, fmt.Errorf("trailing sessions-changed fields %q", rest)
		}
		return SessionsChanged{}, nil
	case "%subscription-changed":
		// Carries subscription details this parser does not model; accepted
		// and discarded.
		return SubscriptionChanged{}, nil
	case "%unlinked-window-add":
		window, err := parseWindowField(rest)
		if err != nil {
			return nil, err
		}
		return UnlinkedWindowAdd{Window: window}, nil
	case "%unlinked-window-close":
		window, err := parseWindowField(rest)
		if err != nil {
			return nil, err
		}
		return UnlinkedWindowClose{Window: window}, nil
	case "%unlinked-window-renamed":
		window, err := parseWindowField(rest)
		if err != nil {
			return nil, err
		}
		return UnlinkedWindowRenamed{Window: window}, nil
	case "%window-add":
		window, err := parseWindowField(rest)
		if err != nil {
			return nil, err
		}
		return WindowAdd{Window: window}, nil
	case "%window-close":
		window, err := parseWindowField(rest)
		if err != nil {
			return nil, err
		}
		return WindowClose{Window: window}, nil
	case "%window-pane-changed":
		windowTok, rest, _ := strings.Cut(rest, " ")
		window, err := parseWindowID(windowTok)
		if err != nil {
			return nil, err
		}
		pane, err := parsePaneField(rest)
		if err != nil {
			return nil, err
		}
		return WindowPaneChanged{Window: window, Pane: pane}, nil
	case "%window-renamed":
		windowTok, rest, _ := strings.Cut(rest, " ")
		window, err := parseWindowID(windowTok)
		if err != nil {
			return nil, err
		}
		name, err := Unvis(rest)
		if err != nil {
			return nil, err
		}
		return WindowRenamed{Window: window, Name: name}, nil
	default:
		return nil, fmt.Errorf("unknown notification %q", s)
	}
}

// parseGuardFields parses the `<timestamp> <number> <flags>` tail shared by
// %begin, %end and %error.
func parseGuardFields(rest string) (timestamp int64, number uint64, flags int64, err error) {
	tsTok, rest, _ := strings.Cut(rest, " ")
	numTok, flagsTok, _ := strings.Cut(rest, " ")
	timestamp, err = strconv.ParseInt(tsTok, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad guard timestamp %q", tsTok)
	}
	number, err = strconv.ParseUint(numTok, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad guard number %q", numTok)
	}
	flags, err = strconv.ParseInt(flagsTok, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad guard flags %q", flagsTok)
	}
	return timestamp, number, flags, nil
}

// parseWordField decodes a field that must be a single non-whitespace word
// filling the rest of the line.
func parseWordField(rest string, what string) (string, error) {
	if rest == "" {
		return "", fmt.Errorf("missing %s", what)
	}
	if strings.Contains(rest, " ") {
		return "", fmt.Errorf("bad %s %q", what, rest)
	}
	return Unvis(rest)
}

func parsePaneID(tok string) (PaneID, error) {
	digits, ok := strings.CutPrefix(tok, "%")
	if !ok {
		return 0, fmt.Errorf("bad pane id %q", tok)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad pane id %q", tok)
	}
	return PaneID(v), nil
}

func parseWindowID(tok string) (WindowID, error) {
	digits, ok := strings.CutPrefix(tok, "@")
	if !ok {
		return 0, fmt.Errorf("bad window id %q", tok)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad window id %q", tok)
	}
	return WindowID(v), nil
}

func parseSessionID(tok string) (SessionID, error) {
	digits, ok := strings.CutPrefix(tok, "$")
	if !ok {
		return 0, fmt.Errorf("bad session id %q", tok)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad session id %q", tok)
	}
	return SessionID(v), nil
}

// parsePaneField parses a `%N` token that must be the final field.
func parsePaneField(rest string) (PaneID, error) {
	tok, trailing, _ := strings.Cut(rest, " ")
	if trailing != "" {
		return 0, fmt.Errorf("trailing pane fields %q", trailing)
	}
	return parsePaneID(tok)
}

// parseWindowField parses an `@N` token that must be the final field.
func parseWindowField(rest string) (WindowID, error) {
	tok, trailing, _ := strings.Cut(rest, " ")
	if trailing != "" {
		return 0, fmt.Errorf("trailing window fields %q", trailing)
	}
	return parseWindowID(tok)
}
