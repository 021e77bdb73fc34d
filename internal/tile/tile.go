// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package tile computes map tile addresses for a position and turns them into fetchable requests
// for the supported map providers.
package tile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/paulmach/orb/maptile"
)

// ErrUnsupportedCoordinate is returned by a provider when an address violates its preconditions.
var ErrUnsupportedCoordinate = errors.New("coordinate not supported by tile provider")

// Address is a provider-specific identifier of the map region to display.
type Address interface {
	String() string
	Equal(other Address) bool
}

// Request describes what the transport has to fetch for an address. When Resolve is set, URL
// points to a lookup whose response names the actual image.
type Request struct {
	URL     string
	Resolve bool
}

// Provider computes addresses in its own addressing scheme and builds requests for them.
type Provider interface {
	Name() string
	Address(latitude, longitude float64) (Address, error)
	Request(addr Address) (Request, error)
}

// JSONGetter performs a GET request and JSON-decodes the response into target.
type JSONGetter interface {
	Get(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string) (int, error)
}

// Resolver is implemented by providers with a two-step resolve-then-fetch protocol.
type Resolver interface {
	Provider
	Resolve(ctx context.Context, client JSONGetter, req Request) (string, error)
}

// RoundedCoord is a coordinate pair rounded to RoundPrecision decimal places.
type RoundedCoord struct {
	Lat float64
	Lon float64
}

// RoundPrecision is the number of decimal places a RoundedCoord keeps (~111m at the equator).
const RoundPrecision = 3

// NewRoundedCoord rounds latitude and longitude independently.
func NewRoundedCoord(latitude, longitude float64) RoundedCoord {
	return RoundedCoord{Lat: Round(latitude, RoundPrecision), Lon: Round(longitude, RoundPrecision)}
}

func (r RoundedCoord) valid() bool {
	return math.Abs(r.Lat) < 90 && math.Abs(r.Lon) <= 180
}

// String returns the rounded pair as "lat,lon".
func (r RoundedCoord) String() string {
	return strconv.FormatFloat(r.Lat, 'f', RoundPrecision, 64) + "," +
		strconv.FormatFloat(r.Lon, 'f', RoundPrecision, 64)
}

// Equal reports whether both rounded values are unchanged.
func (r RoundedCoord) Equal(other Address) bool {
	o, ok := other.(RoundedCoord)
	return ok && o.Lat == r.Lat && o.Lon == r.Lon
}

// XYZ is a slippy-map tile address.
type XYZ struct {
	maptile.Tile
}

// String returns the tile as "z/x/y".
func (t XYZ) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Equal reports whether other is the same tile.
func (t XYZ) Equal(other Address) bool {
	o, ok := other.(XYZ)
	return ok && o.Tile == t.Tile
}

// Round rounds x half away from zero to the given number of decimal places.
func Round(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	// adding zero turns a negative zero into zero
	return math.Round(x*p)/p + 0
}
