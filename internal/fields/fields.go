// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package fields decodes the field-masked updates sent by the Gypsy location daemon.
//
// Every multi-value Gypsy event carries a bitmask telling which of its values are valid. The
// decoders in this package turn such an event into a struct of optional values, so that a value
// the daemon did not report can never be mistaken for a reported zero.
package fields

import (
	"github.com/wneessen/gypsy-status/internal/vartype"
)

// FieldMask is a set of validity flags accompanying a multi-value event. Bits outside the
// universe of the event type are ignored.
type FieldMask uint32

// Position fields
const (
	PositionNone      FieldMask = 0
	PositionLatitude  FieldMask = 1 << 0
	PositionLongitude FieldMask = 1 << 1
	PositionAltitude  FieldMask = 1 << 2
)

// Accuracy fields
const (
	AccuracyNone       FieldMask = 0
	AccuracyPosition   FieldMask = 1 << 0
	AccuracyHorizontal FieldMask = 1 << 1
	AccuracyVertical   FieldMask = 1 << 2
)

// Course fields
const (
	CourseNone      FieldMask = 0
	CourseSpeed     FieldMask = 1 << 0
	CourseDirection FieldMask = 1 << 1
	CourseClimb     FieldMask = 1 << 2
)

// Has reports whether all bits of field are set in the mask.
func (m FieldMask) Has(field FieldMask) bool {
	return field != 0 && m&field == field
}

// Position holds the valid subset of a position update.
type Position struct {
	Latitude  vartype.VarFloat64
	Longitude vartype.VarFloat64
	Altitude  vartype.VarFloat64
}

// HasCoordinates reports whether both latitude and longitude are valid.
func (p Position) HasCoordinates() bool {
	return p.Latitude.IsSet() && p.Longitude.IsSet()
}

// Accuracy holds the valid subset of the dilution of precision values.
type Accuracy struct {
	PDOP vartype.VarFloat64
	HDOP vartype.VarFloat64
	VDOP vartype.VarFloat64
}

// Course holds the valid subset of a course update.
type Course struct {
	Speed     vartype.VarFloat64
	Direction vartype.VarFloat64
	Climb     vartype.VarFloat64
}

// DecodePosition returns the position values whose bit is set in mask.
func DecodePosition(mask FieldMask, latitude, longitude, altitude float64) Position {
	var p Position
	decodeInto(&p.Latitude, mask, PositionLatitude, latitude)
	decodeInto(&p.Longitude, mask, PositionLongitude, longitude)
	decodeInto(&p.Altitude, mask, PositionAltitude, altitude)
	return p
}

// DecodeAccuracy returns the dilution of precision values whose bit is set in mask.
func DecodeAccuracy(mask FieldMask, pdop, hdop, vdop float64) Accuracy {
	var a Accuracy
	decodeInto(&a.PDOP, mask, AccuracyPosition, pdop)
	decodeInto(&a.HDOP, mask, AccuracyHorizontal, hdop)
	decodeInto(&a.VDOP, mask, AccuracyVertical, vdop)
	return a
}

// DecodeCourse returns the course values whose bit is set in mask.
func DecodeCourse(mask FieldMask, speed, direction, climb float64) Course {
	var c Course
	decodeInto(&c.Speed, mask, CourseSpeed, speed)
	decodeInto(&c.Direction, mask, CourseDirection, direction)
	decodeInto(&c.Climb, mask, CourseClimb, climb)
	return c
}

func decodeInto(target *vartype.VarFloat64, mask, field FieldMask, value float64) {
	if mask.Has(field) {
		target.Set(value)
	}
}
