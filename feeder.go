package tmuxcc

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// ParseError is a protocol syntax error: a line that matches no known
// notification shape or carries an unparsable field. Remaining holds the
// newline that ended the offending line followed by every later byte of the
// caller's buffer, so the caller can resynchronise or report.
type ParseError struct {
	Line      string
	Remaining []byte
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse control mode line %q: %v (unprocessed %q)", e.Line, e.Err, e.Remaining)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Feeder accumulates control mode bytes until a newline and dispatches
// whole lines, pairing %begin with %end/%error into Guarded events. It is
// a passive, single-owner object: no goroutines, no locking, no I/O.
type Feeder struct {
	buf    []byte
	begun  *Guarded
	logger *log.Logger
}

func NewFeeder() *Feeder {
	return NewFeederWithLogger(log.Default())
}

// NewFeederWithLogger routes the internally-recovered conditions (stray or
// mismatched guard terminators, dropped blocks) to the given logger.
func NewFeederWithLogger(logger *log.Logger) *Feeder {
	return &Feeder{logger: logger}
}

// AdvanceByte consumes one byte and returns an event once it completes a
// line that produces one. A feeder that returned an error is left in an
// unspecified state; construct a fresh one to continue.
func (f *Feeder) AdvanceByte(b byte) (Event, error) {
	if b == '\n' {
		return f.processLine()
	}
	f.buf = append(f.buf, b)
	return nil, nil
}

// AdvanceBytes consumes a whole buffer and returns the events its complete
// lines produced, in input order. On a protocol error the events emitted
// before the failure are returned together with a *ParseError carrying the
// tail of p from the newline that ended the offending line onwards.
func (f *Feeder) AdvanceBytes(p []byte) ([]Event, error) {
	var events []Event
	for i, b := range p {
		ev, err := f.AdvanceByte(b)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Remaining = append([]byte(nil), p[i:]...)
			}
			return events, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events, nil
}

// AdvanceString is AdvanceBytes over UTF-8 input.
func (f *Feeder) AdvanceString(s string) ([]Event, error) {
	return f.AdvanceBytes([]byte(s))
}

func (f *Feeder) processLine() (Event, error) {
	line := f.buf
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	defer func() {
		f.buf = f.buf[:0]
	}()
	if f.begun != nil {
		return f.processGuardedLine(line), nil
	}

	ev, err := parseLine(line)
	if err != nil {
		f.logger.Error("unrecognized control mode line", "line", string(line), "err", err)
		return nil, &ParseError{Line: string(line), Err: err}
	}
	switch ev := ev.(type) {
	case Begin:
		if f.begun != nil {
			f.logger.Error("expected %end or %error before %begin", "line", string(line))
		}
		f.begun = &Guarded{Timestamp: ev.Timestamp, Number: ev.Number, Flags: ev.Flags}
		return nil, nil
	case End:
		f.logger.Error("unexpected %end with no %begin", "line", string(line))
		return nil, nil
	case Error:
		f.logger.Error("unexpected %error with no %begin", "line", string(line))
		return nil, nil
	default:
		return ev, nil
	}
}

// processGuardedLine classifies a line seen inside an open block: a
// matching terminator closes the block, anything else is body text. Body
// lines are command output and stay verbatim, no unvis pass.
func (f *Feeder) processGuardedLine(line []byte) Event {
	ev, err := parseLine(line)
	if err == nil {
		switch ev := ev.(type) {
		case End:
			begun := *f.begun
			f.begun = nil
			if begun.Timestamp == ev.Timestamp && begun.Number == ev.Number && begun.Flags == ev.Flags {
				return begun
			}
			f.logger.Error("mismatched %end", "expected", begun, "line", string(line))
			return nil
		case Error:
			begun := *f.begun
			f.begun = nil
			if begun.Timestamp == ev.Timestamp && begun.Number == ev.Number && begun.Flags == ev.Flags {
				begun.Error = true
				return begun
			}
			f.logger.Error("mismatched %error", "expected", begun, "line", string(line))
			return nil
		}
	}
	f.begun.Output += string(line) + "\n"
	return nil
}
