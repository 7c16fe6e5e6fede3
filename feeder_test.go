package tmuxcc

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestFeeder() *Feeder {
	return NewFeederWithLogger(log.New(io.Discard))
}

func strptr(s string) *string {
	return &s
}

func TestFeederEmitsGuardedForMatchedBeginEnd(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%begin 12345 321 0\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for %%begin, got %+v", events)
	}
	events, err = f.AdvanceString("%end 12345 321 0\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{Guarded{Timestamp: 12345, Number: 321, Flags: 0, Output: ""}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederCollectsGuardedBody(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%begin 1604279270 310 0\nstuff\nin\nhere\n%end 1604279270 310 0\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{Guarded{Timestamp: 1604279270, Number: 310, Flags: 0, Output: "stuff\nin\nhere\n"}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederMarksErrorTerminatedBlocks(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%begin 100 7 1\nno such command\n%error 100 7 1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{Guarded{Error: true, Timestamp: 100, Number: 7, Flags: 1, Output: "no such command\n"}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederParsesReferenceSequence(t *testing.T) {
	input := `%sessions-changed
%pane-mode-changed %0
%begin 1604279270 310 0
stuff
in
here
%end 1604279270 310 0
%window-add @1
%window-close @38
%unlinked-window-close @39
%sessions-changed
%session-changed $1 1
%client-session-changed /dev/pts/5 $1 home
%client-detached /dev/pts/10
%layout-change @1 b25d,80x24,0,0,0
%layout-change @1 cafd,120x29,0,0,0 cafd,120x29,0,0,0 *
%output %1 \033[1m\033[7m%\033[27m\033[1m\033[0m    \015 \015
%output %1 \033kwez@cube-localdomain:~\033\134\033]2;wez@cube-localdomain:~\033\134
%output %1 \033]7;file://cube-localdomain/home/wez\033\134
%output %1 \033[K\033[?2004h
%exit
%exit I said so
%config-error /home/joe/.tmux.conf:1: unknown command: dadsafafasdf
%continue %2
%extended-output %1 \033[1m\033[7m%\033[27m\033[1m\033[0m    \015 \015
%message message text
%unlinked-window-add @40
%unlinked-window-renamed @41
%paste-buffer-changed just something
%paste-buffer-deleted just something else
%pause %3
%subscription-changed something we don't handle so far
`
	want := []Event{
		SessionsChanged{},
		PaneModeChanged{Pane: 0},
		Guarded{Timestamp: 1604279270, Number: 310, Flags: 0, Output: "stuff\nin\nhere\n"},
		WindowAdd{Window: 1},
		WindowClose{Window: 38},
		UnlinkedWindowClose{Window: 39},
		SessionsChanged{},
		SessionChanged{Session: 1, Name: "1"},
		ClientSessionChanged{ClientName: "/dev/pts/5", Session: 1, SessionName: "home"},
		ClientDetached{ClientName: "/dev/pts/10"},
		LayoutChange{Window: 1, Layout: "b25d,80x24,0,0,0"},
		LayoutChange{Window: 1, Layout: "cafd,120x29,0,0,0", VisibleLayout: strptr("cafd,120x29,0,0,0"), RawFlags: strptr("*")},
		Output{Pane: 1, Text: []byte("\x1b[1m\x1b[7m%\x1b[27m\x1b[1m\x1b[0m    \r \r")},
		Output{Pane: 1, Text: []byte("\x1bkwez@cube-localdomain:~\x1b\\\x1b]2;wez@cube-localdomain:~\x1b\\")},
		Output{Pane: 1, Text: []byte("\x1b]7;file://cube-localdomain/home/wez\x1b\\")},
		Output{Pane: 1, Text: []byte("\x1b[K\x1b[?2004h")},
		Exit{},
		Exit{Reason: strptr("I said so")},
		ConfigError{Error: "/home/joe/.tmux.conf:1: unknown command: dadsafafasdf"},
		Continue{Pane: 2},
		ExtendedOutput{Pane: 1, Text: []byte("\x1b[1m\x1b[7m%\x1b[27m\x1b[1m\x1b[0m    \r \r")},
		Message{Message: "message text"},
		UnlinkedWindowAdd{Window: 40},
		UnlinkedWindowRenamed{Window: 41},
		PasteBufferChanged{Buffer: "just something"},
		PasteBufferDeleted{Buffer: "just something else"},
		Pause{Pane: 3},
		SubscriptionChanged{},
	}

	f := newTestFeeder()
	events, err := f.AdvanceString(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(events[i], want[i]) {
			t.Fatalf("event %d: got %+v want %+v", i, events[i], want[i])
		}
	}
}

func TestFeederChunkedInputMatchesStreamed(t *testing.T) {
	input := []byte("%window-add @1\n%begin 5 6 0\npartial\n%end 5 6 0\n%output %2 ok\r\n")

	whole := newTestFeeder()
	wantEvents, err := whole.AdvanceBytes(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byByte := newTestFeeder()
	var got []Event
	for _, b := range input {
		ev, err := byByte.AdvanceByte(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev != nil {
			got = append(got, ev)
		}
	}
	if !reflect.DeepEqual(got, wantEvents) {
		t.Fatalf("byte-at-a-time got %+v want %+v", got, wantEvents)
	}

	for split := 1; split < len(input); split++ {
		f := newTestFeeder()
		head, err := f.AdvanceBytes(input[:split])
		if err != nil {
			t.Fatalf("split %d: unexpected error: %v", split, err)
		}
		tail, err := f.AdvanceBytes(input[split:])
		if err != nil {
			t.Fatalf("split %d: unexpected error: %v", split, err)
		}
		if !reflect.DeepEqual(append(head, tail...), wantEvents) {
			t.Fatalf("split %d: got %+v want %+v", split, append(head, tail...), wantEvents)
		}
	}
}

func TestFeederStripsCarriageReturnBeforeNewline(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%window-add @3\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{WindowAdd{Window: 3}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederKeepsInteriorCarriageReturns(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceBytes([]byte("%output %1 a\rb\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %+v", events)
	}
	out := events[0].(Output)
	if string(out.Text) != "a\rb" {
		t.Fatalf("unexpected payload: %q", out.Text)
	}
}

func TestFeederHoldsTrailingPartialLine(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%window-add @1\n%window-close @2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{WindowAdd{Window: 1}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
	events, err = f.AdvanceString("\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []Event{WindowClose{Window: 2}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederDropsBlockOnMismatchedTerminator(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%begin 1 1 0\nbody\n%end 2 1 0\n%output %1 hi\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the mismatched %end drops the open block; the body never surfaces
	want := []Event{Output{Pane: 1, Text: []byte("hi")}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederIgnoresStrayTerminators(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%end 9 9 0\n%error 9 9 0\n%window-add @1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{WindowAdd{Window: 1}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederTreatsNestedBeginAsBody(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%begin 1 1 0\n%begin 2 2 0\n%end 1 1 0\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Event{Guarded{Timestamp: 1, Number: 1, Flags: 0, Output: "%begin 2 2 0\n"}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("got %+v want %+v", events, want)
	}
}

func TestFeederGuardedBodyIsNotUnvisDecoded(t *testing.T) {
	f := newTestFeeder()
	events, err := f.AdvanceString("%begin 1 1 0\n" + `a\033b` + "\n%end 1 1 0\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := events[0].(Guarded)
	if g.Output != "a\\033b\n" {
		t.Fatalf("expected verbatim body, got %q", g.Output)
	}
}

func TestFeederFailsOnUnknownLineWithRemainder(t *testing.T) {
	f := newTestFeeder()
	input := []byte("%window-add @1\n%bogus line\n%window-close @2\n")
	events, err := f.AdvanceBytes(input)
	if err == nil {
		t.Fatalf("expected parse failure")
	}
	want := []Event{WindowAdd{Window: 1}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("expected events before the failure, got %+v", events)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Line != "%bogus line" {
		t.Fatalf("unexpected offending line: %q", perr.Line)
	}
	if string(perr.Remaining) != "\n%window-close @2\n" {
		t.Fatalf("unexpected remaining bytes: %q", perr.Remaining)
	}
}

func TestFeederFailsOnBadNumericField(t *testing.T) {
	f := newTestFeeder()
	if _, err := f.AdvanceString("%window-add @nope\n"); err == nil {
		t.Fatalf("expected parse failure")
	}
}
