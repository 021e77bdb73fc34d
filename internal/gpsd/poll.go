// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/gypsy-status/internal/fields"
)

const (
	pollTimeout  = time.Second * 2
	watchRequest = `?WATCH={"enable":true,"json":true}` + "\n"
)

// ErrNoReport is returned by Poll when gpsd did not send a TPV report in time.
var ErrNoReport = errors.New("no TPV report received from gpsd")

type reportClass struct {
	Class string `json:"class"`
}

// Poll opens a short-lived connection to gpsd and returns the events of the first TPV and SKY
// report it sends. A missing SKY report is not an error once a TPV report arrived. The connection
// is closed before returning.
func Poll(ctx context.Context, addr string) ([]fields.Event, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gpsd: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// Without a deadline on ctx a silent gpsd would block us forever
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(pollTimeout))
	}

	if _, err = fmt.Fprint(conn, watchRequest); err != nil {
		return nil, fmt.Errorf("failed to send WATCH request: %w", err)
	}

	var tpvEvents, skyEvents []fields.Event
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		var class reportClass
		if err = json.Unmarshal(line, &class); err != nil {
			continue
		}
		switch class.Class {
		case "TPV":
			tpv := new(gpsd.TPVReport)
			if tpvEvents != nil || json.Unmarshal(line, tpv) != nil {
				continue
			}
			tpvEvents = FromTPV(tpv)
		case "SKY":
			sky := new(gpsd.SKYReport)
			if skyEvents != nil || json.Unmarshal(line, sky) != nil {
				continue
			}
			skyEvents = FromSKY(sky)
		}
		if tpvEvents != nil && skyEvents != nil {
			break
		}
	}

	if tpvEvents == nil {
		if err = scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read gpsd response: %w", err)
		}
		return nil, ErrNoReport
	}
	return append(tpvEvents, skyEvents...), nil
}
