// Public domain.

// Package epoch builds the shared time grid objects are sampled on.
package epoch

import (
	"errors"
	"fmt"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// ErrGrid is wrapped by errors for grid parameters that cannot produce
// a grid.
var ErrGrid = errors.New("invalid sample grid")

// Epoch is an instant split as a Julian day number at 0h UT plus a
// fraction of day.  Holding the day separately keeps sub-second
// resolution that a single float64 Julian date would lose.
type Epoch struct {
	Day    float64 // Julian day at 0h UT, always ends in .5
	Frac   float64 // fraction of day since 0h UT, [0,1)
	Offset int     // minutes after the grid base
}

// FromTime returns the epoch for t, with Offset 0.
func FromTime(t time.Time) Epoch {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Epoch{
		Day:  julian.TimeToJD(midnight),
		Frac: float64(t.Sub(midnight)) / float64(24*time.Hour),
	}
}

// JD returns the epoch as a single Julian date.
func (e Epoch) JD() float64 { return e.Day + e.Frac }

// Time returns the epoch as a UTC time, to the nearest microsecond.
func (e Epoch) Time() time.Time {
	d := time.Duration(e.Frac*float64(24*time.Hour)).Round(time.Microsecond)
	return julian.JDToTime(e.Day).UTC().Round(time.Second).Add(d)
}

// Grid returns epochs base + k*step minutes for k = 0..horizon/step.
// The last epoch is base + horizon only when horizon is a multiple of
// step.  A horizon of 0 gives the single epoch at base.
func Grid(base time.Time, horizon, step int) ([]Epoch, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %d minutes", ErrGrid, step)
	}
	if horizon < 0 {
		return nil, fmt.Errorf("%w: horizon %d minutes", ErrGrid, horizon)
	}
	g := make([]Epoch, 0, horizon/step+1)
	for m := 0; m <= horizon; m += step {
		e := FromTime(base.Add(time.Duration(m) * time.Minute))
		e.Offset = m
		g = append(g, e)
	}
	return g, nil
}
