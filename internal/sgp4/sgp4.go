// Public domain.

// Package sgp4 propagates element sets with the SGP4 and SDP4 models.
//
// Propagation is done with github.com/joshuaferrara/go-satellite using
// WGS-72 constants, the constants element sets are generated with.
// Positions are in km in the TEME frame.
package sgp4

import (
	"errors"
	"fmt"
	"math"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/coord"

	"github.com/soniakeys/conjunct/internal/conjunct"
	"github.com/soniakeys/conjunct/internal/epoch"
	"github.com/soniakeys/conjunct/internal/tle"
)

// EarthRadiusKm is the WGS-72 equatorial radius.
const EarthRadiusKm = 6378.135

// ErrNoPosition is wrapped by errors from Orbit.Position.
var ErrNoPosition = errors.New("no position")

// Propagator prepares element sets for SGP4 propagation.  The zero value
// is ready to use.
type Propagator struct{}

// Prepare validates r and initializes the model for it.
func (Propagator) Prepare(r tle.Record) (o conjunct.Orbit, err error) {
	if err := tle.Validate(r); err != nil {
		return nil, err
	}
	defer func() {
		if x := recover(); x != nil {
			o, err = nil, fmt.Errorf("%w: %s: %v", tle.ErrMalformed, r.Name, x)
		}
	}()
	sat := satellite.TLEToSat(r.Line1, r.Line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%s: model initialization: %s", r.Name, sat.ErrorStr)
	}
	return &Orbit{name: r.Name, sat: sat}, nil
}

// Orbit is an initialized model for one object.
type Orbit struct {
	name string
	sat  satellite.Satellite
}

// Position returns the position at e.
//
// The model takes whole seconds, so e is truncated to the second.
// Positions that are not finite or are inside the Earth mean the model
// has failed, typically from decay, and are returned as errors.
func (o *Orbit) Position(e epoch.Epoch) (coord.Cart, error) {
	t := e.Time()
	p, _ := satellite.Propagate(o.sat, t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())
	r := coord.Cart{X: p.X, Y: p.Y, Z: p.Z}
	d := math.Sqrt(r.Square())
	switch {
	case math.IsNaN(d) || math.IsInf(d, 0):
		return coord.Cart{}, fmt.Errorf("%w: %s at JD %.5f: not finite",
			ErrNoPosition, o.name, e.JD())
	case d < EarthRadiusKm:
		return coord.Cart{}, fmt.Errorf("%w: %s at JD %.5f: radius %.1f km",
			ErrNoPosition, o.name, e.JD(), d)
	}
	return r, nil
}
