// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package display

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/spreak"

	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/vartype"
)

const (
	barWidth  = 10
	prnWidth  = 3
	barFull   = "█"
	barEmpty  = "░"
	satInUse  = "●"
	satUnused = "○"
)

// MapTile is the map image currently shown for the position.
type MapTile struct {
	Address string
	URL     string
	Path    string
}

// Board holds every display field and routes incoming events to them.
type Board struct {
	Time       *Field[int64]
	Fix        *Field[fields.FixStatus]
	Latitude   *Field[float64]
	Longitude  *Field[float64]
	Altitude   *Field[float64]
	Accuracy   *Field[fields.Accuracy]
	Course     *Field[fields.Course]
	Satellites *Field[[]fields.Satellite]
	Map        *Field[MapTile]

	loc *spreak.Localizer
	now func() time.Time

	// mu serializes Apply against Snapshot, so a snapshot never sees half of an event.
	mu      sync.RWMutex
	updated time.Time
}

// Snapshot is a copy of the rendered texts and raw values of a Board that reflects whole events.
type Snapshot struct {
	Time       string
	Fix        string
	Latitude   string
	Longitude  string
	Altitude   string
	Accuracy   string
	Course     string
	Satellites string
	Map        string

	FixStatus         fields.FixStatus
	Timestamp         time.Time
	Position          fields.Position
	SatellitesVisible int
	SatellitesInUse   int
	MapTile           MapTile
	UpdateTime        time.Time
}

// NewBoard returns a Board whose texts are translated by loc.
func NewBoard(loc *spreak.Localizer) *Board {
	b := &Board{loc: loc, now: time.Now}
	b.Time = NewField("time", b.renderTime)
	b.Fix = NewField("fix", b.renderFix)
	b.Latitude = NewField("latitude", b.renderCoordinate("Unknown latitude"))
	b.Longitude = NewField("longitude", b.renderCoordinate("Unknown longitude"))
	b.Altitude = NewField("altitude", b.renderAltitude)
	b.Accuracy = NewField("accuracy", b.renderAccuracy)
	b.Course = NewField("course", b.renderCourse)
	b.Satellites = NewField("satellites", b.renderSatellites)
	b.Map = NewField("map", b.renderMap)
	return b
}

// Apply routes event to the fields it affects and reports whether any rendered text changed.
func (b *Board) Apply(event fields.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false
	switch e := event.(type) {
	case fields.PositionEvent:
		pos := e.Decode()
		changed = b.Latitude.Apply(pos.Latitude)
		changed = b.Longitude.Apply(pos.Longitude) || changed
		changed = b.Altitude.Apply(pos.Altitude) || changed
	case fields.AccuracyEvent:
		changed = b.Accuracy.Set(e.Decode())
	case fields.CourseEvent:
		changed = b.Course.Set(e.Decode())
	case fields.FixStatusEvent:
		changed = b.Fix.Set(e.Status)
	case fields.TimeEvent:
		changed = b.Time.Set(e.Timestamp)
	case fields.SatellitesEvent:
		changed = b.Satellites.Set(fields.SortSatellites(e.Satellites))
	default:
		return false
	}

	b.updated = b.now()
	return changed
}

// Snapshot returns the current state of all fields. The map tile is set outside of Apply and may
// be newer than the position.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		Time:       b.Time.Text(),
		Fix:        b.Fix.Text(),
		Latitude:   b.Latitude.Text(),
		Longitude:  b.Longitude.Text(),
		Altitude:   b.Altitude.Text(),
		Accuracy:   b.Accuracy.Text(),
		Course:     b.Course.Text(),
		Satellites: b.Satellites.Text(),
		Map:        b.Map.Text(),
	}

	if status, ok := b.Fix.Get(); ok {
		snap.FixStatus = status
	}
	if ts, ok := b.Time.Get(); ok && ts != 0 {
		snap.Timestamp = time.Unix(ts, 0).UTC()
	}
	if lat, ok := b.Latitude.Get(); ok {
		snap.Position.Latitude.Set(lat)
	}
	if lon, ok := b.Longitude.Get(); ok {
		snap.Position.Longitude.Set(lon)
	}
	if alt, ok := b.Altitude.Get(); ok {
		snap.Position.Altitude.Set(alt)
	}
	sats, _ := b.Satellites.Get()
	snap.SatellitesVisible = len(sats)
	for _, sat := range sats {
		if sat.InUse {
			snap.SatellitesInUse++
		}
	}
	snap.MapTile, _ = b.Map.Get()
	snap.UpdateTime = b.updated
	return snap
}

func (b *Board) renderTime(value vartype.VarInt64) string {
	ts, ok := value.Get()
	if !ok || ts == 0 {
		return b.loc.Get("unavailable")
	}
	return time.Unix(ts, 0).UTC().Format(time.ANSIC)
}

func (b *Board) renderFix(value vartype.Variable[fields.FixStatus]) string {
	status, _ := value.Get()
	switch status {
	case fields.FixNone:
		return b.loc.Get("No fix obtained")
	case fields.Fix2D:
		return b.loc.Get("2D fix obtained")
	case fields.Fix3D:
		return b.loc.Get("3D fix obtained")
	default:
		return b.loc.Get("Invalid fix")
	}
}

func (b *Board) renderCoordinate(unknown string) RenderFunc[float64] {
	return func(value vartype.VarFloat64) string {
		if !value.IsSet() {
			return b.loc.Get(unknown)
		}
		return value.Sprintf("%+.5f°")
	}
}

func (b *Board) renderAltitude(value vartype.VarFloat64) string {
	if !value.IsSet() {
		return b.loc.Get("Unknown altitude")
	}
	return value.Sprintf("%.1fm")
}

func (b *Board) renderAccuracy(value vartype.Variable[fields.Accuracy]) string {
	acc := value.Value()
	return b.loc.Getf("Positional DOP %s, Horizontal DOP %s, Vertical DOP %s",
		b.optional(acc.PDOP, "%.2f"), b.optional(acc.HDOP, "%.2f"), b.optional(acc.VDOP, "%.2f"))
}

func (b *Board) renderCourse(value vartype.Variable[fields.Course]) string {
	course := value.Value()
	return b.loc.Getf("Speed %s, direction %s, climb %s",
		b.optional(course.Speed, "%.1f kn"), b.optional(course.Direction, "%.0f°"),
		b.optional(course.Climb, "%+.1f m/s"))
}

// renderSatellites draws one line per satellite: its PRN, a bar of the signal to noise ratio
// and a marker for satellites used in the fix.
func (b *Board) renderSatellites(value vartype.Variable[[]fields.Satellite]) string {
	sats := value.Value()
	if len(sats) == 0 {
		return b.loc.Get("No satellites")
	}

	lines := make([]string, 0, len(sats))
	for _, sat := range sats {
		filled := int(min(sat.SNR, 100)) * barWidth / 100
		marker := satUnused
		if sat.InUse {
			marker = satInUse
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %2d",
			marker,
			runewidth.FillLeft(fmt.Sprint(sat.PRN), prnWidth),
			strings.Repeat(barFull, filled)+strings.Repeat(barEmpty, barWidth-filled),
			sat.SNR,
		))
	}
	return strings.Join(lines, "\n")
}

func (b *Board) renderMap(value vartype.Variable[MapTile]) string {
	tile, ok := value.Get()
	if !ok {
		return b.loc.Get("No map")
	}
	return tile.Path
}

func (b *Board) optional(value vartype.VarFloat64, verb string) string {
	if !value.IsSet() {
		return b.loc.Get(vartype.Unknown)
	}
	return value.Sprintf(verb)
}
