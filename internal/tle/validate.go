// Public domain.

package tle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LineLen is the length of each element line.
const LineLen = 69

// ErrMalformed is wrapped by all errors returned from Validate.
var ErrMalformed = errors.New("malformed element set")

// Checksum computes the modulo 10 checksum of the first 68 columns of an
// element line.  Digits count their value, minus signs count one, all
// else counts zero.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < LineLen-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// field locates a fixed column field.  cols are 1-based and inclusive, as
// element set format documentation gives them.
type field struct {
	name       string
	first, end int
	implied    bool // leading decimal point is implied
	exponent   bool // mantissa with implied decimal point and signed exponent
}

var line1Fields = []field{
	{name: "catalog number", first: 3, end: 7},
	{name: "epoch year", first: 19, end: 20},
	{name: "epoch day", first: 21, end: 32},
	{name: "first derivative of mean motion", first: 34, end: 43},
	{name: "second derivative of mean motion", first: 45, end: 52, exponent: true},
	{name: "drag term", first: 54, end: 61, exponent: true},
	{name: "ephemeris type", first: 63, end: 63},
	{name: "element set number", first: 65, end: 68},
}

var line2Fields = []field{
	{name: "catalog number", first: 3, end: 7},
	{name: "inclination", first: 9, end: 16},
	{name: "right ascension of node", first: 18, end: 25},
	{name: "eccentricity", first: 27, end: 33, implied: true},
	{name: "argument of perigee", first: 35, end: 42},
	{name: "mean anomaly", first: 44, end: 51},
	{name: "mean motion", first: 53, end: 63},
	{name: "revolution number", first: 64, end: 68},
}

func (f field) parse(line string) (float64, error) {
	s := strings.TrimSpace(line[f.first-1 : f.end])
	switch {
	case s == "":
		return 0, fmt.Errorf("%w: blank %s", ErrMalformed, f.name)
	case f.implied:
		s = "." + s
	case f.exponent:
		// "-11606-4" means -0.11606e-4
		x := strings.LastIndexAny(s, "+-")
		if x <= 0 {
			return 0, fmt.Errorf("%w: invalid %s (%s)", ErrMalformed, f.name, s)
		}
		m := s[:x]
		sign := ""
		if m[0] == '-' || m[0] == '+' {
			sign, m = m[:1], m[1:]
		}
		s = sign + "." + m + "e" + s[x:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s (%s)", ErrMalformed, f.name, s)
	}
	return v, nil
}

// Validate checks that r is a well formed element set: line markers,
// line lengths, checksums, numeric fields, and matching catalog numbers
// on the two lines.
func Validate(r Record) error {
	for n, l := range []string{r.Line1, r.Line2} {
		if len(l) != LineLen {
			return fmt.Errorf("%w: %s line %d has %d columns",
				ErrMalformed, r.Name, n+1, len(l))
		}
		if l[0] != byte('1'+n) || l[1] != ' ' {
			return fmt.Errorf("%w: %s line %d marker", ErrMalformed, r.Name, n+1)
		}
		c := l[LineLen-1]
		if c < '0' || c > '9' || int(c-'0') != Checksum(l) {
			return fmt.Errorf("%w: %s line %d checksum", ErrMalformed, r.Name, n+1)
		}
	}
	for _, f := range line1Fields {
		if _, err := f.parse(r.Line1); err != nil {
			return fmt.Errorf("%s line 1: %w", r.Name, err)
		}
	}
	for _, f := range line2Fields {
		if _, err := f.parse(r.Line2); err != nil {
			return fmt.Errorf("%s line 2: %w", r.Name, err)
		}
	}
	if r.Line1[2:7] != r.Line2[2:7] {
		return fmt.Errorf("%w: %s catalog numbers differ", ErrMalformed, r.Name)
	}
	return nil
}

// CatalogNumber returns the catalog number field of line 1, trimmed.
// It returns "" if the line is too short to have one.
func (r Record) CatalogNumber() string {
	if len(r.Line1) < 7 {
		return ""
	}
	return strings.TrimSpace(r.Line1[2:7])
}
