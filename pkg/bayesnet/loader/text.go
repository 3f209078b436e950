package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Parse reads the text network format:
//
//	2
//	A true false
//	B true false
//
//	2
//	A
//	0.3 0.7
//
//	B A
//	0.8 0.2
//	0.1 0.9
//
// A variable count, one line per variable (name then values), a CPT count,
// then for each CPT a header line (child then parents) followed by one
// probability line per parent combination, rightmost parent varying
// fastest. Blank lines and lines starting with # are ignored.
func Parse(r io.Reader) (*network.Network, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	p := &textParser{lines: lines}
	return p.parse()
}

type line struct {
	num    int
	fields []string
}

func readLines(r io.Reader) ([]line, error) {
	var out []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, line{num: num, fields: strings.Fields(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type textParser struct {
	lines []line
	pos   int
	last  int
}

func (p *textParser) next(what string) (line, error) {
	if p.pos >= len(p.lines) {
		return line{}, &SyntaxError{Line: p.last, Msg: "unexpected end of file, expected " + what}
	}
	l := p.lines[p.pos]
	p.pos++
	p.last = l.num
	return l, nil
}

func (p *textParser) count(what string) (int, error) {
	l, err := p.next(what)
	if err != nil {
		return 0, err
	}
	if len(l.fields) != 1 {
		return 0, &SyntaxError{Line: l.num, Msg: fmt.Sprintf("expected %s, got %q", what, strings.Join(l.fields, " "))}
	}
	n, err := strconv.Atoi(l.fields[0])
	if err != nil || n < 0 {
		return 0, &SyntaxError{Line: l.num, Msg: fmt.Sprintf("invalid %s %q", what, l.fields[0])}
	}
	return n, nil
}

func (p *textParser) parse() (*network.Network, error) {
	b := network.NewBuilder()

	numVars, err := p.count("variable count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < numVars; i++ {
		l, err := p.next("variable declaration")
		if err != nil {
			return nil, err
		}
		if len(l.fields) < 2 {
			return nil, &SyntaxError{Line: l.num, Msg: fmt.Sprintf("variable %q declares no values", l.fields[0])}
		}
		if err := b.AddVariable(l.fields[0], l.fields[1:]...); err != nil {
			return nil, &SyntaxError{Line: l.num, Msg: "bad variable", Err: err}
		}
	}

	numCPTs, err := p.count("cpt count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < numCPTs; i++ {
		if err := p.parseCPT(b); err != nil {
			return nil, err
		}
	}

	if p.pos < len(p.lines) {
		return nil, &SyntaxError{Line: p.lines[p.pos].num, Msg: "unexpected content after last cpt"}
	}

	net, err := b.Build()
	if err != nil {
		return nil, &SyntaxError{Msg: "invalid network", Err: err}
	}
	return net, nil
}

func (p *textParser) parseCPT(b *network.Builder) error {
	header, err := p.next("cpt header")
	if err != nil {
		return err
	}
	child, parents := header.fields[0], header.fields[1:]

	childDomain, ok := b.Domain(child)
	if !ok {
		return &SyntaxError{Line: header.num, Msg: fmt.Sprintf("cpt for undeclared variable %q", child)}
	}
	rowsWanted := 1
	for _, parent := range parents {
		d, ok := b.Domain(parent)
		if !ok {
			return &SyntaxError{Line: header.num, Msg: fmt.Sprintf("undeclared parent %q of %q", parent, child)}
		}
		rowsWanted *= len(d)
	}

	rows := make([][]float64, rowsWanted)
	for r := range rows {
		l, err := p.next(fmt.Sprintf("probability line %d of %d for %q", r+1, rowsWanted, child))
		if err != nil {
			return err
		}
		if len(l.fields) != len(childDomain) {
			return &SyntaxError{Line: l.num, Msg: fmt.Sprintf("%q needs %d probabilities, got %d",
				child, len(childDomain), len(l.fields))}
		}
		row := make([]float64, len(l.fields))
		for j, f := range l.fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return &SyntaxError{Line: l.num, Msg: fmt.Sprintf("invalid probability %q", f)}
			}
			row[j] = v
		}
		rows[r] = row
	}

	if err := b.SetCPT(child, network.CPT{Parents: parents, Rows: rows}); err != nil {
		return &SyntaxError{Line: header.num, Msg: "bad cpt", Err: err}
	}
	return nil
}
