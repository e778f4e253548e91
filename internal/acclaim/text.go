// Package acclaim reads Acclaim skeleton (ASF) and motion (AMC) files into
// the inputs consumed by package skeleton, and writes AMC motion back out.
package acclaim

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// lineScanner yields trimmed, non-empty lines of Latin-1 text decoded to
// UTF-8, tracking the 1-based line number.
type lineScanner struct {
	sc   *bufio.Scanner
	line int
	text string
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineScanner{sc: sc}
}

func (s *lineScanner) Scan() bool {
	for s.sc.Scan() {
		s.line++
		t := strings.TrimSpace(s.sc.Text())
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		s.text = t
		return true
	}
	return false
}

func (s *lineScanner) Text() string { return s.text }

func (s *lineScanner) Err() error { return s.sc.Err() }
