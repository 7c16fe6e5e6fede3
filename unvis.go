package tmuxcc

import (
	"fmt"
	"unicode/utf8"
)

// Inverse of the OpenBSD vis(3) quoting tmux applies to unsafe bytes in
// strings and pane output.
// See: https://github.com/tmux/tmux/blob/master/compat/unvis.c

type unvisState int

const (
	unvisGround unvisState = iota
	unvisStart
	unvisMeta
	unvisMeta1
	unvisCtrl
	unvisOctal2
	unvisOctal3
)

type unvisDecoder struct {
	state unvisState
	// arg is the pending control base in unvisCtrl and the accumulated
	// octal value in unvisOctal2/unvisOctal3.
	arg byte
	out []byte
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

// step consumes one byte and reports whether the same byte must be fed
// again. Octal escapes are 1-3 digits long, so their terminator byte is
// payload and gets reprocessed in ground state; a byte therefore loops at
// most twice.
func (d *unvisDecoder) step(b byte) (again bool, err error) {
	switch d.state {
	case unvisGround:
		if b == '\\' {
			d.state = unvisStart
		} else {
			d.out = append(d.out, b)
		}

	case unvisStart:
		switch b {
		case '\\':
			d.out = append(d.out, '\\')
			d.state = unvisGround
		case '0', '1', '2', '3', '4', '5', '6', '7':
			d.arg = b - '0'
			d.state = unvisOctal2
		case 'M':
			d.state = unvisMeta
		case '^':
			d.arg = 0
			d.state = unvisCtrl
		case 'n':
			d.out = append(d.out, '\n')
			d.state = unvisGround
		case 'r':
			d.out = append(d.out, '\r')
			d.state = unvisGround
		case 'b':
			d.out = append(d.out, '\x08')
			d.state = unvisGround
		case 'a':
			d.out = append(d.out, '\x07')
			d.state = unvisGround
		case 'v':
			d.out = append(d.out, '\x0b')
			d.state = unvisGround
		case 't':
			d.out = append(d.out, '\t')
			d.state = unvisGround
		case 'f':
			d.out = append(d.out, '\x0c')
			d.state = unvisGround
		case 's':
			d.out = append(d.out, ' ')
			d.state = unvisGround
		case 'E':
			d.out = append(d.out, '\x1b')
			d.state = unvisGround
		case '\n':
			// hidden newline
			d.state = unvisGround
		case '$':
			// hidden marker
			d.state = unvisGround
		default:
			return false, fmt.Errorf("invalid \\ escape: %d", b)
		}

	case unvisMeta:
		switch b {
		case '-':
			d.state = unvisMeta1
		case '^':
			d.arg = 0o200
			d.state = unvisCtrl
		default:
			return false, fmt.Errorf("invalid \\M escape: %d", b)
		}

	case unvisMeta1:
		d.out = append(d.out, b|0o200)
		d.state = unvisGround

	case unvisCtrl:
		if b == '?' {
			d.out = append(d.out, d.arg|0o177)
		} else {
			d.out = append(d.out, (b&0o37)|d.arg)
		}
		d.state = unvisGround

	case unvisOctal2:
		if isOctalDigit(b) {
			d.arg = d.arg<<3 + (b - '0')
			d.state = unvisOctal3
		} else {
			// prior byte was a single octal digit
			d.out = append(d.out, d.arg)
			d.state = unvisGround
			return true, nil
		}

	case unvisOctal3:
		if isOctalDigit(b) {
			d.out = append(d.out, d.arg<<3+(b-'0'))
			d.state = unvisGround
		} else {
			// prior was a two digit octal sequence
			d.out = append(d.out, d.arg)
			d.state = unvisGround
			return true, nil
		}
	}
	return false, nil
}

// UnvisBytes decodes a vis(3) quoted byte string. The result is arbitrary
// bytes; %output payloads go through here without any UTF-8 constraint.
func UnvisBytes(p []byte) ([]byte, error) {
	d := unvisDecoder{out: make([]byte, 0, len(p))}
	for _, b := range p {
		again, err := d.step(b)
		if err != nil {
			return nil, err
		}
		if again {
			if _, err := d.step(b); err != nil {
				return nil, err
			}
		}
	}
	return d.out, nil
}

// Unvis decodes a vis(3) quoted string and enforces that the result is
// valid UTF-8.
func Unvis(s string) (string, error) {
	out, err := UnvisBytes([]byte(s))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", fmt.Errorf("unescaped string is not valid UTF-8: %q", out)
	}
	return string(out), nil
}
