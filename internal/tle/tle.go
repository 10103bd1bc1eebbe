// Public domain.

// Package tle handles two-line element sets: splitting text into records,
// checking their format, and reading them from files or the network.
package tle

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Record is a named two-line element set.  Records are not modified
// after parsing.
type Record struct {
	Name  string
	Line1 string
	Line2 string
}

// Parse groups lines into records.
//
// Lines should already be trimmed with blank lines removed.  A record is
// a name line followed by a line starting "1 " and a line starting "2 ".
// Lines that do not start such a group are skipped one at a time so a
// stray line does not throw off the groups that follow.  Parse never
// fails; unparseable text just doesn't produce records.
func Parse(lines []string) []Record {
	var recs []Record
	for i := 0; i < len(lines); {
		if i+2 < len(lines) &&
			strings.HasPrefix(lines[i+1], "1 ") &&
			strings.HasPrefix(lines[i+2], "2 ") {
			recs = append(recs, Record{
				Name:  strings.TrimSpace(lines[i]),
				Line1: strings.TrimSpace(lines[i+1]),
				Line2: strings.TrimSpace(lines[i+2]),
			})
			i += 3
			continue
		}
		i++
	}
	return recs
}

// Split reads text from r and parses it into records.  Lines are trimmed
// and blank lines dropped before parsing.  Lines of any length are read;
// long lines are just text that doesn't start a group.  The only errors
// are read errors.
func Split(r io.Reader) ([]Record, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		l, err := br.ReadString('\n')
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return Parse(lines), nil
}

// ReadFile reads records from the named file.
func ReadFile(fn string) ([]Record, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Split(f)
}

// Cap returns at most the first n records.  n <= 0 means no limit.
func Cap(recs []Record, n int) []Record {
	if n <= 0 || len(recs) <= n {
		return recs
	}
	return recs[:n]
}
