package tmuxcc

import (
	"errors"
	"fmt"
	"strconv"
)

// PaneLayout is the geometry of one layout node. PaneID is 0 on interior
// split nodes, whose layout token omits the id suffix; after a split is
// parsed the id of its trailing child is copied over it.
type PaneLayout struct {
	PaneID     PaneID
	PaneWidth  uint64
	PaneHeight uint64
	PaneLeft   uint64
	PaneTop    uint64
}

// WindowLayout is one node of a parsed window layout. For the split forms
// the first element is the split's own geometry followed by its leading
// children, left to right.
type WindowLayout interface {
	windowLayout()
}

type (
	SinglePane      PaneLayout
	SplitHorizontal []PaneLayout
	SplitVertical   []PaneLayout
)

func (SinglePane) windowLayout()      {}
func (SplitHorizontal) windowLayout() {}
func (SplitVertical) windowLayout()   {}

// ParseLayout parses a tmux window layout string such as
// `b25d,158x40,0,0{79x40,0,0,75,78x40,80,0,76}` into the ordered list of
// splits it describes, outermost first. A whole-window single pane comes
// back as one SinglePane entry. The optional leading checksum is discarded.
func ParseLayout(layout string) ([]WindowLayout, error) {
	p := &layoutScanner{input: stripLayoutChecksum(layout)}
	var result []WindowLayout
	if _, err := p.parseLevel(&result); err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing layout data %q", p.input[p.pos:])
	}
	if len(result) > 1 {
		// drop the synthetic trailing entry that flagged "not a single pane"
		result = result[:len(result)-1]
	}
	return result, nil
}

// stripLayoutChecksum removes the `xxxx,` magic prefix tmux puts in front
// of a layout. A pane geometry can never match it: four digits there would
// be a width, which is always followed by `x`.
func stripLayoutChecksum(s string) string {
	if len(s) < 5 || s[4] != ',' {
		return s
	}
	for i := 0; i < 4; i++ {
		b := s[i]
		if !(b >= '0' && b <= '9' || b >= 'a' && b <= 'f') {
			return s
		}
	}
	return s[5:]
}

type layoutScanner struct {
	input string
	pos   int
}

func (p *layoutScanner) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *layoutScanner) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d in layout %q", c, p.pos, p.input)
	}
	p.pos++
	return nil
}

func (p *layoutScanner) parseNumber() (uint64, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at offset %d in layout %q", start, p.input)
	}
	return strconv.ParseUint(p.input[start:p.pos], 10, 64)
}

// parseGeometry parses the `WIDTHxHEIGHT,LEFT,TOP` prefix every layout
// node starts with.
func (p *layoutScanner) parseGeometry() (PaneLayout, error) {
	var pane PaneLayout
	var err error
	if pane.PaneWidth, err = p.parseNumber(); err != nil {
		return pane, err
	}
	if err = p.expect('x'); err != nil {
		return pane, err
	}
	if pane.PaneHeight, err = p.parseNumber(); err != nil {
		return pane, err
	}
	if err = p.expect(','); err != nil {
		return pane, err
	}
	if pane.PaneLeft, err = p.parseNumber(); err != nil {
		return pane, err
	}
	if err = p.expect(','); err != nil {
		return pane, err
	}
	pane.PaneTop, err = p.parseNumber()
	return pane, err
}

// tryPaneID consumes a trailing `,ID` suffix if one is present. Digits
// after a comma are the next sibling's width when an `x` follows them;
// only the lookahead can tell the two apart.
func (p *layoutScanner) tryPaneID() (PaneID, bool) {
	if p.peek() != ',' {
		return 0, false
	}
	j := p.pos + 1
	k := j
	for k < len(p.input) && p.input[k] >= '0' && p.input[k] <= '9' {
		k++
	}
	if k == j {
		return 0, false
	}
	if k < len(p.input) && p.input[k] == 'x' {
		return 0, false
	}
	id, err := strconv.ParseUint(p.input[j:k], 10, 64)
	if err != nil {
		return 0, false
	}
	p.pos = k
	return PaneID(id), true
}

// parseLevel parses the comma separated nodes of one nesting level and
// returns their panes in order, nested splits represented by their own
// geometry. Split entries are prepended to result as they close, which
// leaves the outermost split first once the whole string is consumed.
func (p *layoutScanner) parseLevel(result *[]WindowLayout) ([]PaneLayout, error) {
	var stack []PaneLayout
	for {
		pane, err := p.parseGeometry()
		if err != nil {
			return nil, err
		}
		switch open := p.peek(); open {
		case '{', '[':
			p.pos++
			if len(*result) == 0 {
				// synthetic entry, popped by ParseLayout; flags that the
				// window is not a single pane
				*result = append(*result, SplitHorizontal(nil))
			}
			children, err := p.parseLevel(result)
			if err != nil {
				return nil, err
			}
			closing := byte(']')
			if open == '{' {
				closing = '}'
			}
			if err := p.expect(closing); err != nil {
				return nil, err
			}
			if len(children) == 0 {
				return nil, errors.New("empty layout split")
			}
			// the split adopts its trailing child's pane id
			pane.PaneID = children[len(children)-1].PaneID
			row := append([]PaneLayout{pane}, children[:len(children)-1]...)
			var node WindowLayout
			if open == '{' {
				node = SplitHorizontal(row)
			} else {
				node = SplitVertical(row)
			}
			*result = append([]WindowLayout{node}, *result...)
			stack = append(stack, pane)
		default:
			if id, ok := p.tryPaneID(); ok {
				pane.PaneID = id
			}
			if len(*result) == 0 {
				*result = append(*result, SinglePane(pane))
				return stack, nil
			}
			stack = append(stack, pane)
		}
		if p.peek() != ',' {
			return stack, nil
		}
		p.pos++
	}
}
