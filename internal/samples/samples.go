// Public domain.

// Package samples holds a small bundled set of element sets for offline
// demonstrations.
//
// The set includes two debris clusters that come within tens of
// kilometers of their parent objects, one unrelated geostationary object,
// and one group with a bad checksum that the propagator rejects.  Drag
// terms are zero so the geometry holds far from the element epoch.
package samples

import (
	_ "embed"
	"strings"

	"github.com/soniakeys/conjunct/internal/tle"
)

//go:embed elements.txt
var Text string

// Records returns the bundled element sets.  Reading from a string
// cannot fail, so an error here is a bug and panics.
func Records() []tle.Record {
	recs, err := tle.Split(strings.NewReader(Text))
	if err != nil {
		panic(err)
	}
	return recs
}
