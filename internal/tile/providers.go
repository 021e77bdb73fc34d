// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package tile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	DefaultQuadkeyTemplate = "http://kh0.google.co.uk/kh?n=404&v=23&t={quadkey}"
	DefaultXYZTemplate     = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultResolveEndpoint = "http://local.yahooapis.com/MapsService/V1/mapImage"

	DefaultImageWidth  = 300
	DefaultImageHeight = 300
	DefaultZoom        = 3
	DefaultXYZZoom     = 16
)

// ErrNoImage is returned when a resolve response does not name an image.
var ErrNoImage = errors.New("resolve response did not contain an image URL")

// QuadkeyProvider serves tiles addressed by quadkey through a URL template with a {quadkey}
// placeholder.
type QuadkeyProvider struct {
	projector Projector
	template  string
}

// NewQuadkeyProvider returns a QuadkeyProvider. An empty template selects DefaultQuadkeyTemplate.
func NewQuadkeyProvider(template string, depth uint, policy LongitudePolicy) (*QuadkeyProvider, error) {
	if template == "" {
		template = DefaultQuadkeyTemplate
	}
	if !strings.Contains(template, "{quadkey}") {
		return nil, fmt.Errorf("URL template %q is missing the {quadkey} placeholder", template)
	}
	if depth == 0 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	return &QuadkeyProvider{
		projector: Projector{Depth: depth, Policy: policy},
		template:  template,
	}, nil
}

func (p *QuadkeyProvider) Name() string {
	return "quadkey"
}

// Address projects the coordinate into a quadkey.
func (p *QuadkeyProvider) Address(latitude, longitude float64) (Address, error) {
	quad, err := p.projector.Project(latitude, longitude)
	if err != nil {
		return nil, err
	}
	return quad, nil
}

// Request embeds the quadkey into the URL template.
func (p *QuadkeyProvider) Request(addr Address) (Request, error) {
	quad, ok := addr.(Quadkey)
	if !ok {
		return Request{}, fmt.Errorf("%w: %T is not a quadkey", ErrUnsupportedCoordinate, addr)
	}
	if _, err := ParseQuadkey(string(quad)); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrUnsupportedCoordinate, err)
	}
	return Request{URL: strings.ReplaceAll(p.template, "{quadkey}", string(quad))}, nil
}

// RoundedCoordProvider serves map images for arbitrary coordinates from a metered lookup service.
// Coordinates are rounded to RoundPrecision decimal places to keep the request volume down, and
// every request is a lookup whose response names the image to fetch.
type RoundedCoordProvider struct {
	endpoint string
	appID    string
	width    uint
	height   uint
	zoom     uint
	policy   LongitudePolicy
}

// ResolveResponse is the lookup service's answer.
type ResolveResponse struct {
	ResultSet struct {
		Result string `json:"Result"`
	} `json:"ResultSet"`
}

// NewRoundedCoordProvider returns a RoundedCoordProvider. Zero dimensions or zoom select the defaults.
func NewRoundedCoordProvider(endpoint, appID string, width, height, zoom uint,
	policy LongitudePolicy,
) (*RoundedCoordProvider, error) {
	if endpoint == "" {
		endpoint = DefaultResolveEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("failed to parse resolve endpoint: %w", err)
	}
	if appID == "" {
		return nil, errors.New("rounded coordinate provider requires an application ID")
	}
	if width == 0 {
		width = DefaultImageWidth
	}
	if height == 0 {
		height = DefaultImageHeight
	}
	if zoom == 0 {
		zoom = DefaultZoom
	}
	return &RoundedCoordProvider{
		endpoint: endpoint,
		appID:    appID,
		width:    width,
		height:   height,
		zoom:     zoom,
		policy:   policy,
	}, nil
}

func (p *RoundedCoordProvider) Name() string {
	return "rounded"
}

// Address rounds the coordinate. Rounding can land a latitude just below the pole right on it,
// such a coordinate is unsupported.
func (p *RoundedCoordProvider) Address(latitude, longitude float64) (Address, error) {
	if err := CheckLatitude(latitude); err != nil {
		return nil, err
	}
	longitude, err := p.policy.Normalize(longitude)
	if err != nil {
		return nil, err
	}
	coord := NewRoundedCoord(latitude, longitude)
	if !coord.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCoordinate, coord)
	}
	return coord, nil
}

// Request builds the lookup query for the rounded coordinate.
func (p *RoundedCoordProvider) Request(addr Address) (Request, error) {
	coord, ok := addr.(RoundedCoord)
	if !ok {
		return Request{}, fmt.Errorf("%w: %T is not a rounded coordinate", ErrUnsupportedCoordinate, addr)
	}
	if !coord.valid() {
		return Request{}, fmt.Errorf("%w: %s", ErrUnsupportedCoordinate, coord)
	}

	reqURL, err := url.Parse(p.endpoint)
	if err != nil {
		return Request{}, fmt.Errorf("failed to parse resolve endpoint: %w", err)
	}
	query := reqURL.Query()
	query.Set("appid", p.appID)
	query.Set("latitude", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	query.Set("image_width", strconv.FormatUint(uint64(p.width), 10))
	query.Set("image_height", strconv.FormatUint(uint64(p.height), 10))
	query.Set("zoom", strconv.FormatUint(uint64(p.zoom), 10))
	query.Set("output", "json")
	reqURL.RawQuery = query.Encode()

	return Request{URL: reqURL.String(), Resolve: true}, nil
}

// Resolve performs the lookup step and returns the URL of the image to fetch.
func (p *RoundedCoordProvider) Resolve(ctx context.Context, client JSONGetter, req Request) (string, error) {
	result := new(ResolveResponse)
	status, err := client.Get(ctx, req.URL, result, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to resolve map image: %w", err)
	}
	if status >= 400 {
		return "", fmt.Errorf("failed to resolve map image: unexpected HTTP status %d", status)
	}
	if result.ResultSet.Result == "" {
		return "", ErrNoImage
	}
	return result.ResultSet.Result, nil
}

// XYZProvider serves slippy-map tiles through a URL template with {z}, {x} and {y} placeholders.
type XYZProvider struct {
	template string
	zoom     maptile.Zoom
	policy   LongitudePolicy
}

// NewXYZProvider returns a XYZProvider. An empty template selects DefaultXYZTemplate.
func NewXYZProvider(template string, zoom uint, policy LongitudePolicy) (*XYZProvider, error) {
	if template == "" {
		template = DefaultXYZTemplate
	}
	for _, placeholder := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(template, placeholder) {
			return nil, fmt.Errorf("URL template %q is missing the %s placeholder", template, placeholder)
		}
	}
	if zoom == 0 {
		zoom = DefaultXYZZoom
	}
	if zoom > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, zoom)
	}
	return &XYZProvider{template: template, zoom: maptile.Zoom(zoom), policy: policy}, nil
}

func (p *XYZProvider) Name() string {
	return "xyz"
}

// Address returns the tile containing the coordinate.
func (p *XYZProvider) Address(latitude, longitude float64) (Address, error) {
	if err := CheckLatitude(latitude); err != nil {
		return nil, err
	}
	longitude, err := p.policy.Normalize(longitude)
	if err != nil {
		return nil, err
	}
	latitude = math.Max(-MaxLatitude, math.Min(MaxLatitude, latitude))
	return XYZ{maptile.At(orb.Point{longitude, latitude}, p.zoom)}, nil
}

// Request fills the URL template with the tile coordinates.
func (p *XYZProvider) Request(addr Address) (Request, error) {
	var t maptile.Tile
	switch a := addr.(type) {
	case XYZ:
		t = a.Tile
	case Quadkey:
		qt, err := a.Tile()
		if err != nil {
			return Request{}, fmt.Errorf("%w: %w", ErrUnsupportedCoordinate, err)
		}
		t = qt
	default:
		return Request{}, fmt.Errorf("%w: %T is not a tile", ErrUnsupportedCoordinate, addr)
	}
	if t.Z > MaxDepth || t.X >= 1<<t.Z || t.Y >= 1<<t.Z {
		return Request{}, fmt.Errorf("%w: tile %d/%d/%d out of range", ErrUnsupportedCoordinate, t.Z, t.X, t.Y)
	}
	replacer := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	)
	return Request{URL: replacer.Replace(p.template)}, nil
}
