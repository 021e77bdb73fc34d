// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package fields

import (
	"slices"
)

// Kind identifies the Gypsy interface an Event originates from.
type Kind int

const (
	KindPosition Kind = iota
	KindAccuracy
	KindCourse
	KindFixStatus
	KindTime
	KindSatellites
)

// String returns the Gypsy interface name of the Kind.
func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "Position"
	case KindAccuracy:
		return "Accuracy"
	case KindCourse:
		return "Course"
	case KindFixStatus:
		return "Device"
	case KindTime:
		return "Time"
	case KindSatellites:
		return "Satellite"
	default:
		return "unknown"
	}
}

// Event is a raw update as delivered by a location source.
type Event interface {
	Kind() Kind
}

// PositionEvent is the wire shape of Gypsy's PositionChanged signal.
type PositionEvent struct {
	Fields    FieldMask
	Timestamp int64
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// AccuracyEvent is the wire shape of Gypsy's AccuracyChanged signal.
type AccuracyEvent struct {
	Fields FieldMask
	PDOP   float64
	HDOP   float64
	VDOP   float64
}

// CourseEvent is the wire shape of Gypsy's CourseChanged signal.
type CourseEvent struct {
	Fields    FieldMask
	Timestamp int64
	Speed     float64
	Direction float64
	Climb     float64
}

// FixStatusEvent is the wire shape of Gypsy's FixStatusChanged signal.
type FixStatusEvent struct {
	Status FixStatus
}

// TimeEvent is the wire shape of Gypsy's TimeChanged signal. A zero Timestamp means the
// receiver has no time.
type TimeEvent struct {
	Timestamp int64
}

// SatellitesEvent is the wire shape of Gypsy's SatellitesChanged signal.
type SatellitesEvent struct {
	Satellites []Satellite
}

func (PositionEvent) Kind() Kind   { return KindPosition }
func (AccuracyEvent) Kind() Kind   { return KindAccuracy }
func (CourseEvent) Kind() Kind     { return KindCourse }
func (FixStatusEvent) Kind() Kind  { return KindFixStatus }
func (TimeEvent) Kind() Kind       { return KindTime }
func (SatellitesEvent) Kind() Kind { return KindSatellites }

// Decode returns the valid fields of the event.
func (e PositionEvent) Decode() Position {
	return DecodePosition(e.Fields, e.Latitude, e.Longitude, e.Altitude)
}

// Decode returns the valid fields of the event.
func (e AccuracyEvent) Decode() Accuracy {
	return DecodeAccuracy(e.Fields, e.PDOP, e.HDOP, e.VDOP)
}

// Decode returns the valid fields of the event.
func (e CourseEvent) Decode() Course {
	return DecodeCourse(e.Fields, e.Speed, e.Direction, e.Climb)
}

// FixStatus is the current lock quality of the GPS receiver.
type FixStatus uint8

const (
	FixInvalid FixStatus = 0
	FixNone    FixStatus = 1
	Fix2D      FixStatus = 2
	Fix3D      FixStatus = 3
)

// ParseFixStatus converts a raw status value. Values outside the known range are FixInvalid.
func ParseFixStatus(raw int32) FixStatus {
	if raw < int32(FixInvalid) || raw > int32(Fix3D) {
		return FixInvalid
	}
	return FixStatus(raw)
}

// String returns a short, class-friendly name of the status.
func (f FixStatus) String() string {
	switch f {
	case FixNone:
		return "nofix"
	case Fix2D:
		return "fix2d"
	case Fix3D:
		return "fix3d"
	default:
		return "invalid"
	}
}

// Satellite is one entry of Gypsy's satellite list.
type Satellite struct {
	PRN       uint32
	InUse     bool
	Elevation uint32
	Azimuth   uint32
	SNR       uint32
}

// SortSatellites returns a copy of sats ordered by PRN.
func SortSatellites(sats []Satellite) []Satellite {
	sorted := slices.Clone(sats)
	slices.SortStableFunc(sorted, func(a, b Satellite) int {
		switch {
		case a.PRN < b.PRN:
			return -1
		case a.PRN > b.PRN:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
