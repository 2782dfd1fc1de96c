// Package clock converts instants to parish wall clocks.
package clock

import (
	"time"

	"github.com/trezcool/parokia/core"
)

// NowFunc is the only place the wall clock is read. Calculators take `now` explicitly.
var NowFunc = time.Now // mockable

// Now returns the current instant in UTC.
func Now() time.Time {
	return NowFunc().UTC()
}

// LoadLocation resolves an IANA zone name; an empty name resolves to core.DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	name = core.CleanString(name)
	if name == "" {
		name = core.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, core.NewConfigError("timezone", err)
	}
	return loc, nil
}

// MustLoadLocation is LoadLocation for zone names known at compile time.
func MustLoadLocation(name string) *time.Location {
	loc, err := LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// InParishTime returns the wall clock of instant in loc.
func InParishTime(instant time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return instant.In(loc)
}

// Resolver picks the zone for a parish: its own when set, else the configured fallback.
type Resolver struct {
	fallback *time.Location
}

func NewResolver(conf *core.Config) *Resolver {
	loc := conf.Parish.Location
	if loc == nil {
		loc = MustLoadLocation(conf.Parish.Timezone)
	}
	return &Resolver{fallback: loc}
}

func (r *Resolver) Fallback() *time.Location {
	return r.fallback
}

// Location resolves a parish zone name; parish zones are validated when written,
// so an unknown name here is reported as a configuration error.
func (r *Resolver) Location(name string) (*time.Location, error) {
	if core.CleanString(name) == "" {
		return r.fallback, nil
	}
	return LoadLocation(name)
}
