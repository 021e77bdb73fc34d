// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/logger"
)

const (
	testLat = 40.7185
	testLon = -74.0025
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeSession struct {
	filters map[string]gpsd.Filter
	reports []interface{}
}

func (f *fakeSession) AddFilter(class string, filter gpsd.Filter) {
	if f.filters == nil {
		f.filters = make(map[string]gpsd.Filter)
	}
	f.filters[class] = filter
}

func (f *fakeSession) Watch() chan bool {
	done := make(chan bool)
	go func() {
		for _, report := range f.reports {
			switch r := report.(type) {
			case *gpsd.TPVReport:
				f.filters["TPV"](r)
			case *gpsd.SKYReport:
				f.filters["SKY"](r)
			}
		}
	}()
	return done
}

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelInfo, io.Discard)
}

func TestNew(t *testing.T) {
	t.Run("empty address uses the gpsd default", func(t *testing.T) {
		source := New("", testLogger())
		if source.addr != gpsd.DefaultAddress {
			t.Errorf("expected address to be %s, got %s", gpsd.DefaultAddress, source.addr)
		}
		if source.Name() != name {
			t.Errorf("expected source name to be %s, got %s", name, source.Name())
		}
	})
	t.Run("custom address is kept", func(t *testing.T) {
		source := New("gps.local:2947", testLogger())
		if source.addr != "gps.local:2947" {
			t.Errorf("expected address to be gps.local:2947, got %s", source.addr)
		}
	})
}

func TestSource_Resync(t *testing.T) {
	source := New("", testLogger())
	source.Resync()
	source.Resync()
	if len(source.resync) != 1 {
		t.Errorf("expected pending resync requests to be merged, got %d", len(source.resync))
	}
}

func TestFromTPV(t *testing.T) {
	t.Run("3D fix reports every value", func(t *testing.T) {
		events := FromTPV(&gpsd.TPVReport{
			Mode: gpsd.Mode3D, Time: testTime, Lat: testLat, Lon: testLon, Alt: 12.5, Speed: 1.852, Track: 90,
			Climb: -0.5,
		})
		if len(events) != 4 {
			t.Fatalf("expected 4 events, got %d", len(events))
		}
		if fix := events[0].(fields.FixStatusEvent); fix.Status != fields.Fix3D {
			t.Errorf("expected fix status to be %s, got %s", fields.Fix3D, fix.Status)
		}
		if ts := events[1].(fields.TimeEvent); ts.Timestamp != testTime.Unix() {
			t.Errorf("expected timestamp to be %d, got %d", testTime.Unix(), ts.Timestamp)
		}
		if ts := events[2].(fields.PositionEvent).Timestamp; ts != testTime.Unix() {
			t.Errorf("expected position timestamp to be %d, got %d", testTime.Unix(), ts)
		}
		pos := events[2].(fields.PositionEvent).Decode()
		if pos.Latitude.Value() != testLat || pos.Longitude.Value() != testLon || pos.Altitude.Value() != 12.5 {
			t.Errorf("unexpected position: %+v", pos)
		}
		course := events[3].(fields.CourseEvent).Decode()
		if !course.Speed.IsSet() || !course.Direction.IsSet() || course.Climb.Value() != -0.5 {
			t.Errorf("unexpected course: %+v", course)
		}
		if math.Abs(course.Speed.Value()-3.6) > 1e-9 {
			t.Errorf("expected speed to be 3.6 knots, got %f", course.Speed.Value())
		}
	})
	t.Run("2D fix has no altitude and climb", func(t *testing.T) {
		events := FromTPV(&gpsd.TPVReport{Mode: gpsd.Mode2D, Time: testTime, Lat: testLat, Lon: testLon, Alt: 12.5})
		pos := events[2].(fields.PositionEvent)
		if pos.Fields != fields.PositionLatitude|fields.PositionLongitude {
			t.Errorf("expected latitude and longitude only, got %b", pos.Fields)
		}
		course := events[3].(fields.CourseEvent)
		if course.Fields.Has(fields.CourseClimb) {
			t.Error("expected climb to be absent")
		}
	})
	t.Run("no fix clears every value", func(t *testing.T) {
		events := FromTPV(&gpsd.TPVReport{Mode: gpsd.NoFix, Time: testTime, Lat: testLat, Lon: testLon})
		if fix := events[0].(fields.FixStatusEvent); fix.Status != fields.FixNone {
			t.Errorf("expected fix status to be %s, got %s", fields.FixNone, fix.Status)
		}
		if ts := events[1].(fields.TimeEvent); ts.Timestamp != 0 {
			t.Errorf("expected no timestamp, got %d", ts.Timestamp)
		}
		if pos := events[2].(fields.PositionEvent).Decode(); pos.HasCoordinates() {
			t.Errorf("expected no coordinates, got %+v", pos)
		}
	})
	t.Run("non-finite values are absent", func(t *testing.T) {
		events := FromTPV(&gpsd.TPVReport{Mode: gpsd.Mode3D, Time: testTime, Lat: math.NaN(), Lon: testLon})
		pos := events[2].(fields.PositionEvent)
		if pos.Fields.Has(fields.PositionLatitude) {
			t.Error("expected latitude to be absent")
		}
	})
	t.Run("fix without receiver time has no timestamp", func(t *testing.T) {
		events := FromTPV(&gpsd.TPVReport{Mode: gpsd.Mode3D, Lat: testLat, Lon: testLon})
		if ts := events[1].(fields.TimeEvent); ts.Timestamp != 0 {
			t.Errorf("expected no timestamp, got %d", ts.Timestamp)
		}
		pos := events[2].(fields.PositionEvent)
		if pos.Timestamp != 0 {
			t.Errorf("expected no position timestamp, got %d", pos.Timestamp)
		}
		if !pos.Decode().HasCoordinates() {
			t.Error("expected coordinates to be valid")
		}
	})
}

func TestFromSKY(t *testing.T) {
	events := FromSKY(&gpsd.SKYReport{
		Pdop: 1.8, Hdop: 0.9,
		Satellites: []gpsd.Satellite{
			{PRN: 7, Az: 120.4, El: 33, Ss: 41, Used: true},
			{PRN: 3, Az: -1, El: 5, Ss: 0},
		},
	})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	accuracy := events[0].(fields.AccuracyEvent)
	if accuracy.Fields != fields.AccuracyPosition|fields.AccuracyHorizontal {
		t.Errorf("expected PDOP and HDOP only, got %b", accuracy.Fields)
	}
	sats := events[1].(fields.SatellitesEvent).Satellites
	want := []fields.Satellite{
		{PRN: 7, InUse: true, Elevation: 33, Azimuth: 120, SNR: 41},
		{PRN: 3, Elevation: 5},
	}
	if len(sats) != len(want) {
		t.Fatalf("expected %d satellites, got %d", len(want), len(sats))
	}
	for i := range want {
		if sats[i] != want[i] {
			t.Errorf("expected satellite %d to be %+v, got %+v", i, want[i], sats[i])
		}
	}
}

func TestSource_Stream(t *testing.T) {
	t.Run("connecting fails on first run but then succeeds", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			var dials atomic.Int32
			source := New("", testLogger())
			source.period = time.Millisecond * 10
			source.dial = func(string) (session, error) {
				if dials.Add(1) == 1 {
					return nil, errors.New("intentionally failing")
				}
				return &fakeSession{reports: []interface{}{
					&gpsd.TPVReport{Mode: gpsd.Mode2D, Lat: testLat, Lon: testLon},
				}}, nil
			}

			out := source.Stream(ctx)
			var got []fields.Event
			for len(got) < 4 {
				select {
				case event := <-out:
					got = append(got, event)
				case <-ctx.Done():
					t.Fatalf("context done before result: %v", ctx.Err())
				}
			}
			cancel()
			synctest.Wait()

			if dials.Load() != 2 {
				t.Errorf("expected 2 dial attempts, got %d", dials.Load())
			}
			pos, ok := got[2].(fields.PositionEvent)
			if !ok {
				t.Fatalf("expected position event, got %T", got[2])
			}
			if pos.Latitude != testLat || pos.Longitude != testLon {
				t.Errorf("expected position %f/%f, got %f/%f", testLat, testLon, pos.Latitude, pos.Longitude)
			}
		})
	})
	t.Run("resync polls gpsd while connected", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			var polls atomic.Int32
			source := New("", testLogger())
			source.dial = func(string) (session, error) {
				return &fakeSession{}, nil
			}
			source.poll = func(context.Context) ([]fields.Event, error) {
				if polls.Add(1) == 1 {
					return nil, errors.New("intentionally failing")
				}
				return []fields.Event{fields.FixStatusEvent{Status: fields.Fix3D}}, nil
			}

			out := source.Stream(ctx)
			source.Resync()
			synctest.Wait()
			source.Resync()

			select {
			case event := <-out:
				fix, ok := event.(fields.FixStatusEvent)
				if !ok || fix.Status != fields.Fix3D {
					t.Errorf("expected 3D fix status event, got %+v", event)
				}
			case <-ctx.Done():
				t.Fatalf("context done before result: %v", ctx.Err())
			}
			synctest.Wait()
			if polls.Load() != 2 {
				t.Errorf("expected 2 polls, got %d", polls.Load())
			}
			cancel()
			synctest.Wait()
		})
	})
}
