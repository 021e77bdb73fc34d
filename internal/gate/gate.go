// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gate decides whether a position update moved the map far enough to refetch its tile.
package gate

import (
	"fmt"

	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/tile"
)

// DisplayState is the memory of one map view: the last accepted tile address and, for providers
// that resolve an address to an image first, the last resolved image URL. A DisplayState belongs
// to exactly one view and is not safe for concurrent use.
type DisplayState struct {
	lastAddress     tile.Address
	lastResourceURL string
	haveResource    bool
}

// LastAddress returns the last accepted address, or nil if none was accepted yet.
func (s *DisplayState) LastAddress() tile.Address {
	return s.lastAddress
}

// LastResourceURL returns the last accepted image URL and whether one was accepted yet.
func (s *DisplayState) LastResourceURL() (string, bool) {
	return s.lastResourceURL, s.haveResource
}

// ShouldRefresh returns the new address and true if pos maps to a different address than the
// last accepted one under the provider's addressing scheme. A position without both latitude and
// longitude never triggers a refresh. Errors of the provider are returned without touching state.
func ShouldRefresh(pos fields.Position, state *DisplayState, provider tile.Provider) (tile.Address, bool, error) {
	lat, latOk := pos.Latitude.Get()
	lon, lonOk := pos.Longitude.Get()
	if !latOk || !lonOk {
		return nil, false, nil
	}

	addr, err := provider.Address(lat, lon)
	if err != nil {
		return nil, false, fmt.Errorf("failed to compute %s tile address: %w", provider.Name(), err)
	}
	if state.lastAddress != nil && state.lastAddress.Equal(addr) {
		return nil, false, nil
	}
	state.lastAddress = addr
	return addr, true, nil
}

// AcceptResource reports whether url differs from the last accepted image URL and records it if
// so. Providers can map several addresses onto the same image, which then needs no new fetch.
func (s *DisplayState) AcceptResource(url string) bool {
	if s.haveResource && s.lastResourceURL == url {
		return false
	}
	s.lastResourceURL = url
	s.haveResource = true
	return true
}
