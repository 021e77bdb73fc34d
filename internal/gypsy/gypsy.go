// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gypsy subscribes to the Gypsy GPS daemon on the D-Bus system bus and turns its signals
// into field events.
package gypsy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/logger"
)

const (
	ServiceName = "org.freedesktop.Gypsy"
	ControlPath = dbus.ObjectPath("/org/freedesktop/Gypsy")

	interfacePrefix = ServiceName + "."
	methodCreate    = interfacePrefix + "Server.Create"
	methodStart     = interfacePrefix + "Device.Start"

	signalBufferSize = 16
	retryDelay       = 10 * time.Second
	reconnectDelay   = 2 * time.Second
)

var (
	ErrUnknownSignal = errors.New("unknown gypsy signal")
	ErrMalformedBody = errors.New("malformed gypsy message body")
)

// getters are the methods queried for the current values, in the order they are emitted.
var getters = []struct {
	method string
	signal string
}{
	{interfacePrefix + "Device.GetFixStatus", "FixStatusChanged"},
	{interfacePrefix + "Time.GetTime", "TimeChanged"},
	{interfacePrefix + "Position.GetPosition", "PositionChanged"},
	{interfacePrefix + "Accuracy.GetAccuracy", "AccuracyChanged"},
	{interfacePrefix + "Course.GetCourse", "CourseChanged"},
	{interfacePrefix + "Satellite.GetSatellites", "SatellitesChanged"},
}

// caller is the subset of dbus.BusObject used to query a Gypsy device.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Client streams the updates of one GPS device managed by the Gypsy daemon.
type Client struct {
	device string
	logger *logger.Logger
	resync chan struct{}
}

// New returns a Client for the given device, which is a Bluetooth address or a device node path
// as understood by Gypsy.
func New(device string, log *logger.Logger) *Client {
	return &Client{
		device: device,
		logger: log,
		resync: make(chan struct{}, 1),
	}
}

func (c *Client) Name() string {
	return "gypsy"
}

// Resync requests a new query of all current values. The answers are emitted on the stream
// like regular signals.
func (c *Client) Resync() {
	select {
	case c.resync <- struct{}{}:
	default:
	}
}

// Stream connects to the system bus, creates and starts the device and returns a channel of
// events. The current values are emitted first, followed by every change signal. A lost bus
// connection is re-established until ctx is cancelled, which also closes the channel.
func (c *Client) Stream(ctx context.Context) <-chan fields.Event {
	out := make(chan fields.Event)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, device, err := c.connect(ctx)
			if err != nil {
				c.logger.Error("failed to connect to gypsy daemon", slog.String("device", c.device),
					logger.Err(err))
				if !sleep(ctx, retryDelay) {
					return
				}
				continue
			}

			c.forward(ctx, conn, device, out)
			if err = conn.Close(); err != nil {
				c.logger.Error("failed to close system bus connection", logger.Err(err))
			}
			if !sleep(ctx, reconnectDelay) {
				return
			}
		}
	}()

	return out
}

// connect creates the device object through the Gypsy control object, starts it and subscribes
// to its signals.
func (c *Client) connect(ctx context.Context) (*dbus.Conn, dbus.BusObject, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	var path dbus.ObjectPath
	control := conn.Object(ServiceName, ControlPath)
	if err = control.CallWithContext(ctx, methodCreate, 0, c.device).Store(&path); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to create gypsy device: %w", err), conn.Close())
	}
	device := conn.Object(ServiceName, path)
	if err = device.CallWithContext(ctx, methodStart, 0).Err; err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to start gypsy device: %w", err), conn.Close())
	}
	if err = conn.AddMatchSignal(dbus.WithMatchSender(ServiceName), dbus.WithMatchObjectPath(path)); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to subscribe to gypsy signals: %w", err), conn.Close())
	}
	c.logger.Debug("subscribed to gypsy device", slog.String("device", c.device),
		slog.String("path", string(path)))

	return conn, device, nil
}

// forward emits the current values of device and then every signal received on conn until the
// connection is lost or ctx is cancelled.
func (c *Client) forward(ctx context.Context, conn *dbus.Conn, device dbus.BusObject, out chan<- fields.Event) {
	sigCh := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(sigCh)
	defer conn.RemoveSignal(sigCh)

	if !c.emitCurrent(ctx, device, out) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.resync:
			if !c.emitCurrent(ctx, device, out) {
				return
			}
		case sig, ok := <-sigCh:
			if !ok {
				c.logger.Warn("lost connection to gypsy daemon")
				return
			}
			if sig.Path != device.Path() {
				continue
			}
			event, err := ParseSignal(sig)
			if err != nil {
				c.logger.Debug("ignoring gypsy signal", slog.String("name", sig.Name), logger.Err(err))
				continue
			}
			if !send(ctx, out, event) {
				return
			}
		}
	}
}

// emitCurrent queries and emits all current values. Failing queries are logged and skipped.
func (c *Client) emitCurrent(ctx context.Context, device caller, out chan<- fields.Event) bool {
	events, errs := Current(ctx, device)
	for _, err := range errs {
		c.logger.Warn("failed to query current gypsy value", logger.Err(err))
	}
	for _, event := range events {
		if !send(ctx, out, event) {
			return false
		}
	}
	return true
}

// Current queries the current value of every Gypsy interface of device.
func Current(ctx context.Context, device caller) ([]fields.Event, []error) {
	events := make([]fields.Event, 0, len(getters))
	var errs []error
	for _, getter := range getters {
		call := device.CallWithContext(ctx, getter.method, 0)
		if call.Err != nil {
			errs = append(errs, fmt.Errorf("failed to call %s: %w", getter.method, call.Err))
			continue
		}
		event, err := decode(getter.signal, call.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to decode %s reply: %w", getter.method, err))
			continue
		}
		events = append(events, event)
	}
	return events, errs
}

// ParseSignal converts a Gypsy change signal into its event.
func ParseSignal(sig *dbus.Signal) (fields.Event, error) {
	if sig == nil || !strings.HasPrefix(sig.Name, interfacePrefix) {
		return nil, ErrUnknownSignal
	}
	member := sig.Name[strings.LastIndex(sig.Name, ".")+1:]
	return decode(member, sig.Body)
}

func decode(member string, body []any) (fields.Event, error) {
	var err error
	switch member {
	case "PositionChanged":
		var event fields.PositionEvent
		var mask, timestamp int32
		err = scan(body, &mask, &timestamp, &event.Latitude, &event.Longitude, &event.Altitude)
		event.Fields, event.Timestamp = fields.FieldMask(mask), int64(timestamp)
		return event, err
	case "AccuracyChanged":
		var event fields.AccuracyEvent
		var mask int32
		err = scan(body, &mask, &event.PDOP, &event.HDOP, &event.VDOP)
		event.Fields = fields.FieldMask(mask)
		return event, err
	case "CourseChanged":
		var event fields.CourseEvent
		var mask, timestamp int32
		err = scan(body, &mask, &timestamp, &event.Speed, &event.Direction, &event.Climb)
		event.Fields, event.Timestamp = fields.FieldMask(mask), int64(timestamp)
		return event, err
	case "FixStatusChanged":
		var status int32
		err = scan(body, &status)
		return fields.FixStatusEvent{Status: fields.ParseFixStatus(status)}, err
	case "TimeChanged":
		var timestamp int32
		err = scan(body, &timestamp)
		return fields.TimeEvent{Timestamp: int64(timestamp)}, err
	case "SatellitesChanged":
		if len(body) != 1 {
			return nil, fmt.Errorf("%w: expected 1 value, got %d", ErrMalformedBody, len(body))
		}
		sats, err := decodeSatellites(body[0])
		return fields.SatellitesEvent{Satellites: sats}, err
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSignal, member)
	}
}

// scan assigns the values of body to targets, which must match the D-Bus types exactly.
func scan(body []any, targets ...any) error {
	if len(body) != len(targets) {
		return fmt.Errorf("%w: expected %d values, got %d", ErrMalformedBody, len(targets), len(body))
	}
	for i, target := range targets {
		ok := false
		switch t := target.(type) {
		case *int32:
			*t, ok = body[i].(int32)
		case *uint32:
			*t, ok = body[i].(uint32)
		case *float64:
			*t, ok = body[i].(float64)
		case *bool:
			*t, ok = body[i].(bool)
		}
		if !ok {
			return fmt.Errorf("%w: unexpected type %T at index %d", ErrMalformedBody, body[i], i)
		}
	}
	return nil
}

// decodeSatellites converts the a(ubuuu) satellite array.
func decodeSatellites(value any) ([]fields.Satellite, error) {
	var entries [][]any
	switch v := value.(type) {
	case [][]any:
		entries = v
	case []any:
		for _, entry := range v {
			values, ok := entry.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected satellite type %T", ErrMalformedBody, entry)
			}
			entries = append(entries, values)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected satellite list type %T", ErrMalformedBody, value)
	}

	sats := make([]fields.Satellite, 0, len(entries))
	for _, entry := range entries {
		var sat fields.Satellite
		if err := scan(entry, &sat.PRN, &sat.InUse, &sat.Elevation, &sat.Azimuth, &sat.SNR); err != nil {
			return nil, err
		}
		sats = append(sats, sat)
	}
	return sats, nil
}

func send(ctx context.Context, out chan<- fields.Event, event fields.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- event:
		return true
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
