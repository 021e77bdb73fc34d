// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpsd is an alternative location source that watches a gpsd daemon and converts its
// TPV and SKY reports into the same field events the Gypsy daemon sends.
package gpsd

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/logger"
)

const (
	name = "gpsd"
	// knotsPerMeterSecond converts gpsd's speed in m/s into knots
	knotsPerMeterSecond = 3600.0 / 1852.0
)

// session is the subset of a go-gpsd session used by the Source.
type session interface {
	AddFilter(class string, f gpsd.Filter)
	Watch() chan bool
}

// Source streams the reports of a gpsd daemon as field events.
type Source struct {
	addr   string
	period time.Duration
	logger *logger.Logger
	dial   func(addr string) (session, error)
	poll   func(ctx context.Context) ([]fields.Event, error)
	resync chan struct{}
}

// New returns a Source for the gpsd daemon listening on addr.
func New(addr string, log *logger.Logger) *Source {
	if addr == "" {
		addr = gpsd.DefaultAddress
	}
	source := &Source{
		addr:   addr,
		period: time.Second * 30,
		logger: log,
		dial: func(addr string) (session, error) {
			return gpsd.Dial(addr)
		},
		resync: make(chan struct{}, 1),
	}
	source.poll = func(ctx context.Context) ([]fields.Event, error) {
		return Poll(ctx, source.addr)
	}
	return source
}

func (s *Source) Name() string {
	return name
}

// Resync requests a one-shot poll of gpsd while the stream is connected. Requests made while one
// is pending are merged.
func (s *Source) Resync() {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

// Stream connects to gpsd and returns a channel of events. Each TPV report yields a fix status,
// time, position and course event, each SKY report an accuracy and a satellites event. The
// connection is re-established after the configured period if gpsd goes away. go-gpsd keeps
// calling the filters from its own goroutine and offers no way to stop them, so the channel is
// never closed; consumers stop on ctx.
func (s *Source) Stream(ctx context.Context) <-chan fields.Event {
	out := make(chan fields.Event)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			sess, err := s.dial(s.addr)
			if err != nil {
				s.logger.Error("failed to connect to gpsd", slog.String("address", s.addr), logger.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.period):
					continue
				}
			}

			sess.AddFilter("TPV", func(r interface{}) {
				tpv, ok := r.(*gpsd.TPVReport)
				if !ok {
					return
				}
				for _, event := range FromTPV(tpv) {
					if !send(ctx, out, event) {
						return
					}
				}
			})
			sess.AddFilter("SKY", func(r interface{}) {
				sky, ok := r.(*gpsd.SKYReport)
				if !ok {
					return
				}
				for _, event := range FromSKY(sky) {
					if !send(ctx, out, event) {
						return
					}
				}
			})

			if !s.watch(ctx, sess.Watch(), out) {
				// go-gpsd has no Close(), the connection is torn down on exit
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.period):
			}
		}
	}()

	return out
}

// watch waits for the session to end and answers resync requests in the meantime. It returns
// false once ctx is done.
func (s *Source) watch(ctx context.Context, done chan bool, out chan<- fields.Event) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-done:
			s.logger.Warn("gpsd connection ended, reconnecting", slog.String("address", s.addr))
			return true
		case <-s.resync:
			pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
			events, err := s.poll(pollCtx)
			cancel()
			if err != nil {
				s.logger.Error("failed to poll gpsd", slog.String("address", s.addr), logger.Err(err))
				continue
			}
			for _, event := range events {
				if !send(ctx, out, event) {
					return false
				}
			}
		}
	}
}

// FromTPV converts a TPV report. gpsd's mode doubles as the Gypsy fix status. Coordinates, speed
// and track are valid from a 2D fix on, altitude and climb need a 3D fix. Speed is converted from
// meters per second to knots, the unit Gypsy reports. Timestamps are the receiver's time, zero if
// the report carries none.
func FromTPV(tpv *gpsd.TPVReport) []fields.Event {
	status := fields.ParseFixStatus(int32(tpv.Mode))
	events := []fields.Event{fields.FixStatusEvent{Status: status}}
	if status < fields.Fix2D {
		return append(events,
			fields.TimeEvent{},
			fields.PositionEvent{Fields: fields.PositionNone},
			fields.CourseEvent{Fields: fields.CourseNone},
		)
	}

	var timestamp int64
	if !tpv.Time.IsZero() {
		timestamp = tpv.Time.Unix()
	}
	position := fields.PositionEvent{Timestamp: timestamp}
	position.Fields |= maskIf(fields.PositionLatitude, finite(tpv.Lat), &position.Latitude, tpv.Lat)
	position.Fields |= maskIf(fields.PositionLongitude, finite(tpv.Lon), &position.Longitude, tpv.Lon)
	position.Fields |= maskIf(fields.PositionAltitude, status == fields.Fix3D && finite(tpv.Alt),
		&position.Altitude, tpv.Alt)

	course := fields.CourseEvent{Timestamp: timestamp}
	course.Fields |= maskIf(fields.CourseSpeed, finite(tpv.Speed), &course.Speed, tpv.Speed*knotsPerMeterSecond)
	course.Fields |= maskIf(fields.CourseDirection, finite(tpv.Track), &course.Direction, tpv.Track)
	course.Fields |= maskIf(fields.CourseClimb, status == fields.Fix3D && finite(tpv.Climb), &course.Climb,
		tpv.Climb)

	return append(events, fields.TimeEvent{Timestamp: timestamp}, position, course)
}

// FromSKY converts a SKY report. gpsd reports a missing dilution of precision as zero.
func FromSKY(sky *gpsd.SKYReport) []fields.Event {
	accuracy := fields.AccuracyEvent{}
	accuracy.Fields |= maskIf(fields.AccuracyPosition, known(sky.Pdop), &accuracy.PDOP, sky.Pdop)
	accuracy.Fields |= maskIf(fields.AccuracyHorizontal, known(sky.Hdop), &accuracy.HDOP, sky.Hdop)
	accuracy.Fields |= maskIf(fields.AccuracyVertical, known(sky.Vdop), &accuracy.VDOP, sky.Vdop)

	sats := make([]fields.Satellite, 0, len(sky.Satellites))
	for _, sat := range sky.Satellites {
		sats = append(sats, fields.Satellite{
			PRN:       toUint32(sat.PRN),
			InUse:     sat.Used,
			Elevation: toUint32(sat.El),
			Azimuth:   toUint32(sat.Az),
			SNR:       toUint32(sat.Ss),
		})
	}
	return []fields.Event{accuracy, fields.SatellitesEvent{Satellites: sats}}
}

func maskIf(field fields.FieldMask, valid bool, target *float64, value float64) fields.FieldMask {
	if !valid {
		return 0
	}
	*target = value
	return field
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func known(v float64) bool {
	return finite(v) && v > 0
}

func toUint32(v float64) uint32 {
	if !finite(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}

func send(ctx context.Context, out chan<- fields.Event, event fields.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- event:
		return true
	}
}
