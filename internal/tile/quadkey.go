// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package tile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb/maptile"
)

const (
	// DefaultDepth is the number of quadtree levels below the world root in a Quadkey.
	DefaultDepth = 16
	// MaxDepth is the deepest level a Quadkey can address.
	MaxDepth = 30
	// MaxLatitude is the northern and southern limit of the spherical Mercator square.
	MaxLatitude = 85.05112878

	quadRoot     = 't'
	quadAlphabet = "qrts"
)

var (
	// ErrDomain is returned for coordinates the projection cannot represent.
	ErrDomain = errors.New("coordinate outside of the projection domain")
	// ErrInvalidDepth is returned for a quadtree depth of zero or above MaxDepth.
	ErrInvalidDepth = errors.New("invalid quadtree depth")
	// ErrInvalidQuadkey is returned when parsing a malformed quadkey.
	ErrInvalidQuadkey = errors.New("invalid quadkey")
)

// LongitudePolicy decides how longitudes outside [-180, 180] are treated.
type LongitudePolicy int

const (
	// LongitudeWrap reduces the longitude modulo 360 into [-180, 180).
	LongitudeWrap LongitudePolicy = iota
	// LongitudeReject fails with ErrDomain for longitudes outside [-180, 180].
	LongitudeReject
)

// ParseLongitudePolicy parses "wrap" or "reject".
func ParseLongitudePolicy(value string) (LongitudePolicy, error) {
	switch strings.ToLower(value) {
	case "", "wrap":
		return LongitudeWrap, nil
	case "reject":
		return LongitudeReject, nil
	default:
		return LongitudeWrap, fmt.Errorf("unsupported longitude policy: %s", value)
	}
}

// String returns the config name of the policy.
func (p LongitudePolicy) String() string {
	if p == LongitudeReject {
		return "reject"
	}
	return "wrap"
}

// Normalize applies the policy to a longitude.
func (p LongitudePolicy) Normalize(longitude float64) (float64, error) {
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) {
		return 0, fmt.Errorf("%w: longitude %f", ErrDomain, longitude)
	}
	if longitude >= -180 && longitude <= 180 {
		return longitude, nil
	}
	if p == LongitudeReject {
		return 0, fmt.Errorf("%w: longitude %f out of range", ErrDomain, longitude)
	}
	wrapped := math.Mod(longitude+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped - 180, nil
}

// CheckLatitude fails with ErrDomain for latitudes at or beyond the poles and for non-finite values.
func CheckLatitude(latitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) {
		return fmt.Errorf("%w: latitude %f", ErrDomain, latitude)
	}
	if latitude >= 90 || latitude <= -90 {
		return fmt.Errorf("%w: latitude %f at or beyond the poles", ErrDomain, latitude)
	}
	return nil
}

// Quadkey addresses a tile in the quadtree subdivision of the Mercator world square: the world
// root symbol followed by one symbol per level, most significant first.
type Quadkey string

// Projector computes quadkeys at a fixed depth.
type Projector struct {
	Depth  uint
	Policy LongitudePolicy
}

// Project converts a coordinate into a quadkey of the given depth, wrapping out-of-range longitudes.
func Project(latitude, longitude float64, depth uint) (Quadkey, error) {
	return Projector{Depth: depth, Policy: LongitudeWrap}.Project(latitude, longitude)
}

// Project converts a coordinate into a quadkey of the projector's depth.
func (p Projector) Project(latitude, longitude float64) (Quadkey, error) {
	if p.Depth == 0 || p.Depth > MaxDepth {
		return "", fmt.Errorf("%w: %d", ErrInvalidDepth, p.Depth)
	}
	if err := CheckLatitude(latitude); err != nil {
		return "", err
	}
	longitude, err := p.Policy.Normalize(longitude)
	if err != nil {
		return "", err
	}

	x := (180 + longitude) / 360
	y := mercatorY(latitude)

	key := make([]byte, 0, p.Depth+1)
	key = append(key, quadRoot)
	for range p.Depth {
		x -= math.Trunc(x)
		y -= math.Trunc(y)
		idx := 0
		if x >= 0.5 {
			idx++
		}
		if y >= 0.5 {
			idx += 2
		}
		key = append(key, quadAlphabet[idx])
		x *= 2
		y *= 2
	}
	return Quadkey(key), nil
}

// mercatorY returns the fractional world row of a latitude, 0 being the northern edge. Latitudes
// beyond MaxLatitude are clamped onto the edge of the world square.
func mercatorY(latitude float64) float64 {
	latitude = math.Max(-MaxLatitude, math.Min(MaxLatitude, latitude))
	sin := math.Sin(-latitude * math.Pi / 180)
	y := 0.5*math.Log((1+sin)/(1-sin))/(2*math.Pi) + 0.5
	return math.Max(0, math.Min(math.Nextafter(1, 0), y))
}

// ParseQuadkey validates a quadkey string.
func ParseQuadkey(value string) (Quadkey, error) {
	if len(value) < 2 || value[0] != quadRoot || len(value)-1 > MaxDepth {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuadkey, value)
	}
	for _, r := range value[1:] {
		if !strings.ContainsRune(quadAlphabet, r) {
			return "", fmt.Errorf("%w: unexpected symbol %q in %q", ErrInvalidQuadkey, r, value)
		}
	}
	return Quadkey(value), nil
}

// Depth returns the number of levels below the world root.
func (q Quadkey) Depth() uint {
	if len(q) == 0 {
		return 0
	}
	return uint(len(q) - 1)
}

// String returns the quadkey symbols.
func (q Quadkey) String() string {
	return string(q)
}

// Equal reports whether other is the same quadkey. Any difference at any depth is a different tile.
func (q Quadkey) Equal(other Address) bool {
	o, ok := other.(Quadkey)
	return ok && o == q
}

// Tile returns the slippy-map tile the quadkey addresses.
func (q Quadkey) Tile() (maptile.Tile, error) {
	if _, err := ParseQuadkey(string(q)); err != nil {
		return maptile.Tile{}, err
	}
	var x, y uint32
	for _, r := range q[1:] {
		idx := strings.IndexRune(quadAlphabet, r)
		x = x<<1 | uint32(idx&1)
		y = y<<1 | uint32(idx>>1)
	}
	return maptile.Tile{X: x, Y: y, Z: maptile.Zoom(q.Depth())}, nil
}
