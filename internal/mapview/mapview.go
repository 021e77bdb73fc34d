// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package mapview keeps the map tile of the current position up to date.
//
// A View asks the change gate whether a position moved onto a new tile, builds the provider
// request, optionally resolves it to an image URL and stores the fetched image in the tile cache
// directory. A failed fetch is not retried and the gate state is not rolled back, so the last
// good image stays on display until the position moves onto another tile.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wneessen/gypsy-status/internal/display"
	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/gate"
	"github.com/wneessen/gypsy-status/internal/logger"
	"github.com/wneessen/gypsy-status/internal/tile"
)

const (
	cacheDirPerm  = 0o750
	cacheFilePerm = 0o640
	defaultExt    = ".img"
)

// ErrTransport wraps every failure of the resolve or fetch step.
var ErrTransport = errors.New("failed to fetch map image")

// Fetcher is the transport a View fetches lookups and images with.
type Fetcher interface {
	tile.JSONGetter
	GetBytes(ctx context.Context, endpoint string) ([]byte, error)
}

// View is the map widget of a Board. It is driven by a single goroutine.
type View struct {
	provider tile.Provider
	client   Fetcher
	board    *display.Board
	cacheDir string
	logger   *logger.Logger
	state    gate.DisplayState
}

// New returns a View that renders into board and stores images below cacheDir. The directory is
// created on the first fetch.
func New(provider tile.Provider, client Fetcher, board *display.Board, cacheDir string,
	log *logger.Logger,
) (*View, error) {
	if provider == nil {
		return nil, errors.New("tile provider is required")
	}
	return &View{
		provider: provider,
		client:   client,
		board:    board,
		cacheDir: cacheDir,
		logger:   log,
	}, nil
}

// Provider returns the tile provider of the view.
func (v *View) Provider() tile.Provider {
	return v.provider
}

// LastAddress returns the address of the last accepted tile, or nil. Like Handle it must only be
// called from the goroutine that feeds the view.
func (v *View) LastAddress() tile.Address {
	return v.state.LastAddress()
}

// Handle processes a position update and reports whether a new image was put on display.
func (v *View) Handle(ctx context.Context, pos fields.Position) (bool, error) {
	addr, refresh, err := gate.ShouldRefresh(pos, &v.state, v.provider)
	if err != nil || !refresh {
		return false, err
	}

	req, err := v.provider.Request(addr)
	if err != nil {
		return false, fmt.Errorf("failed to build %s tile request: %w", v.provider.Name(), err)
	}

	imageURL := req.URL
	if req.Resolve {
		resolver, ok := v.provider.(tile.Resolver)
		if !ok {
			return false, fmt.Errorf("%s tile provider cannot resolve requests", v.provider.Name())
		}
		if imageURL, err = resolver.Resolve(ctx, v.client, req); err != nil {
			return false, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		if !v.state.AcceptResource(imageURL) {
			v.logger.Debug("map image unchanged", slog.String("address", addr.String()))
			return false, nil
		}
	}

	data, err := v.client.GetBytes(ctx, imageURL)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err = os.MkdirAll(v.cacheDir, cacheDirPerm); err != nil {
		return false, fmt.Errorf("failed to create tile cache directory: %w", err)
	}
	file := filepath.Join(v.cacheDir, v.fileName(addr, imageURL))
	if err = os.WriteFile(file, data, cacheFilePerm); err != nil {
		return false, fmt.Errorf("failed to store map image: %w", err)
	}

	v.board.Map.Set(display.MapTile{Address: addr.String(), URL: imageURL, Path: file})
	v.logger.Debug("map image updated", slog.String("address", addr.String()),
		slog.String("url", imageURL), slog.String("path", file))
	return true, nil
}

// fileName names the cache file of an address, e.g. "quadkey-tqt.png" or "xyz-16_34_21.png".
func (v *View) fileName(addr tile.Address, imageURL string) string {
	ext := defaultExt
	if u, err := url.Parse(imageURL); err == nil && path.Ext(u.Path) != "" {
		ext = path.Ext(u.Path)
	}
	name := strings.NewReplacer("/", "_", ",", "_").Replace(addr.String())
	return v.provider.Name() + "-" + name + ext
}
