// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package mapview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wneessen/gypsy-status/internal/display"
	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/i18n"
	"github.com/wneessen/gypsy-status/internal/logger"
	"github.com/wneessen/gypsy-status/internal/tile"
	"github.com/wneessen/gypsy-status/internal/vartype"
)

const (
	testTemplate = "https://tiles.example.com/{quadkey}.png"
	testImageURL = "https://images.example.com/map.png"
)

type mockFetcher struct {
	resolved  string
	fetchErr  error
	getCalls  int
	byteCalls int
}

func (m *mockFetcher) Get(_ context.Context, _ string, target any, _ url.Values, _ map[string]string) (int, error) {
	m.getCalls++
	resp, ok := target.(*tile.ResolveResponse)
	if !ok {
		return 0, errors.New("unexpected target type")
	}
	resp.ResultSet.Result = m.resolved
	return 200, nil
}

func (m *mockFetcher) GetBytes(_ context.Context, endpoint string) ([]byte, error) {
	m.byteCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return []byte("image:" + endpoint), nil
}

func TestNew(t *testing.T) {
	t.Run("new view succeeds", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "tiles")
		view, _ := testView(t, testQuadkeyProvider(t), &mockFetcher{}, dir)
		if view.Provider().Name() != "quadkey" {
			t.Errorf("expected provider to be quadkey, got %s", view.Provider().Name())
		}
		if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected cache directory not to be created before the first fetch, got %v", err)
		}
	})
	t.Run("new view without provider fails", func(t *testing.T) {
		_, err := New(nil, &mockFetcher{}, nil, t.TempDir(), logger.NewLogger(slog.LevelDebug, io.Discard))
		if err == nil {
			t.Fatal("expected view creation to fail, but didn't")
		}
	})
}

func TestView_Handle(t *testing.T) {
	t.Run("position without coordinates is ignored", func(t *testing.T) {
		fetcher := &mockFetcher{}
		view, _ := testView(t, testQuadkeyProvider(t), fetcher, t.TempDir())
		pos := fields.Position{Latitude: vartype.NewVariable(51.5)}
		updated, err := view.Handle(context.Background(), pos)
		if err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		if updated {
			t.Error("expected no update without longitude")
		}
		if fetcher.byteCalls != 0 {
			t.Errorf("expected no fetch, got %d", fetcher.byteCalls)
		}
	})
	t.Run("new tile is fetched and stored", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "tiles")
		fetcher := &mockFetcher{}
		view, board := testView(t, testQuadkeyProvider(t), fetcher, dir)
		updated, err := view.Handle(context.Background(), testPosition(51.5, -0.125))
		if err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		if !updated {
			t.Fatal("expected map to be updated")
		}

		mapTile, ok := board.Map.Get()
		if !ok {
			t.Fatal("expected map tile to be set on the board")
		}
		if !strings.HasPrefix(mapTile.URL, "https://tiles.example.com/t") {
			t.Errorf("unexpected tile URL: %s", mapTile.URL)
		}
		if filepath.Dir(mapTile.Path) != dir || filepath.Ext(mapTile.Path) != ".png" {
			t.Errorf("unexpected tile path: %s", mapTile.Path)
		}
		if !strings.HasPrefix(filepath.Base(mapTile.Path), "quadkey-"+mapTile.Address) {
			t.Errorf("expected tile file name to contain the address %s, got %s", mapTile.Address, mapTile.Path)
		}
		data, err := os.ReadFile(mapTile.Path)
		if err != nil {
			t.Fatalf("failed to read stored tile: %s", err)
		}
		if string(data) != "image:"+mapTile.URL {
			t.Errorf("unexpected tile content: %s", data)
		}
		if board.Map.Text() != mapTile.Path {
			t.Errorf("expected map text to be %s, got %s", mapTile.Path, board.Map.Text())
		}
		if view.LastAddress() == nil || view.LastAddress().String() != mapTile.Address {
			t.Errorf("expected last address to be %s, got %v", mapTile.Address, view.LastAddress())
		}
	})
	t.Run("same tile is not fetched again", func(t *testing.T) {
		fetcher := &mockFetcher{}
		view, _ := testView(t, testQuadkeyProvider(t), fetcher, t.TempDir())
		if _, err := view.Handle(context.Background(), testPosition(51.5, -0.125)); err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		updated, err := view.Handle(context.Background(), testPosition(51.50001, -0.12501))
		if err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		if updated {
			t.Error("expected no update for the same tile")
		}
		if fetcher.byteCalls != 1 {
			t.Errorf("expected exactly one fetch, got %d", fetcher.byteCalls)
		}
	})
	t.Run("projection errors are returned", func(t *testing.T) {
		view, _ := testView(t, testQuadkeyProvider(t), &mockFetcher{}, t.TempDir())
		_, err := view.Handle(context.Background(), testPosition(90, 0))
		if !errors.Is(err, tile.ErrDomain) {
			t.Errorf("expected error to be %s, got %s", tile.ErrDomain, err)
		}
	})
	t.Run("fetch failure keeps the last image and is not retried", func(t *testing.T) {
		fetcher := &mockFetcher{}
		view, board := testView(t, testQuadkeyProvider(t), fetcher, t.TempDir())
		if _, err := view.Handle(context.Background(), testPosition(51.5, -0.125)); err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		first, _ := board.Map.Get()

		fetcher.fetchErr = errors.New("connection refused")
		_, err := view.Handle(context.Background(), testPosition(-33.9, 151.2))
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("expected error to be %s, got %s", ErrTransport, err)
		}
		if current, _ := board.Map.Get(); current != first {
			t.Errorf("expected last good image to stay on display, got %+v", current)
		}

		updated, err := view.Handle(context.Background(), testPosition(-33.9, 151.2))
		if err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		if updated {
			t.Error("expected failed tile not to be refetched")
		}
		if fetcher.byteCalls != 2 {
			t.Errorf("expected two fetches, got %d", fetcher.byteCalls)
		}
	})
	t.Run("unusable cache directory fails", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o600); err != nil {
			t.Fatalf("failed to create file: %s", err)
		}
		view, board := testView(t, testQuadkeyProvider(t), &mockFetcher{}, filepath.Join(file, "tiles"))
		_, err := view.Handle(context.Background(), testPosition(51.5, -0.125))
		if err == nil {
			t.Fatal("expected storing the tile to fail, but didn't")
		}
		if !strings.Contains(err.Error(), "failed to create tile cache directory") {
			t.Errorf("unexpected error: %s", err)
		}
		if _, ok := board.Map.Get(); ok {
			t.Error("expected no map tile on the board")
		}
	})
	t.Run("identical resolved image is fetched once", func(t *testing.T) {
		provider, err := tile.NewRoundedCoordProvider("https://lookup.example.com/mapImage", "appid",
			0, 0, 0, tile.LongitudeWrap)
		if err != nil {
			t.Fatalf("failed to create provider: %s", err)
		}
		fetcher := &mockFetcher{resolved: testImageURL}
		view, board := testView(t, provider, fetcher, t.TempDir())

		updated, err := view.Handle(context.Background(), testPosition(51.5, -0.125))
		if err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		if !updated {
			t.Fatal("expected map to be updated")
		}
		updated, err = view.Handle(context.Background(), testPosition(51.502, -0.125))
		if err != nil {
			t.Fatalf("failed to handle position: %s", err)
		}
		if updated {
			t.Error("expected identical image not to be fetched again")
		}
		if fetcher.getCalls != 2 {
			t.Errorf("expected two lookups, got %d", fetcher.getCalls)
		}
		if fetcher.byteCalls != 1 {
			t.Errorf("expected exactly one fetch, got %d", fetcher.byteCalls)
		}
		mapTile, _ := board.Map.Get()
		if mapTile.URL != testImageURL || mapTile.Address != "51.500,-0.125" {
			t.Errorf("unexpected map tile: %+v", mapTile)
		}
		if filepath.Base(mapTile.Path) != "rounded-51.500_-0.125.png" {
			t.Errorf("unexpected tile file name: %s", filepath.Base(mapTile.Path))
		}
	})
	t.Run("failed lookup is a transport error", func(t *testing.T) {
		provider, err := tile.NewRoundedCoordProvider("", "appid", 0, 0, 0, tile.LongitudeWrap)
		if err != nil {
			t.Fatalf("failed to create provider: %s", err)
		}
		fetcher := &mockFetcher{}
		view, _ := testView(t, provider, fetcher, t.TempDir())
		_, err = view.Handle(context.Background(), testPosition(51.5, -0.125))
		if !errors.Is(err, ErrTransport) {
			t.Errorf("expected error to be %s, got %s", ErrTransport, err)
		}
		if !errors.Is(err, tile.ErrNoImage) {
			t.Errorf("expected error to wrap %s, got %s", tile.ErrNoImage, err)
		}
		if fetcher.byteCalls != 0 {
			t.Errorf("expected no fetch, got %d", fetcher.byteCalls)
		}
	})
}

func TestView_fileName(t *testing.T) {
	view := &View{provider: testQuadkeyProvider(t)}
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"extension from URL", "https://tiles.example.com/tqt.jpeg?v=1", "quadkey-tqt.jpeg"},
		{"no extension", "https://tiles.example.com/kh?t=tqt", "quadkey-tqt.img"},
		{"unparsable URL", "://", "quadkey-tqt.img"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := view.fileName(tile.Quadkey("tqt"), tt.url); got != tt.want {
				t.Errorf("expected file name to be %s, got %s", tt.want, got)
			}
		})
	}
}

func testQuadkeyProvider(t *testing.T) *tile.QuadkeyProvider {
	t.Helper()
	provider, err := tile.NewQuadkeyProvider(testTemplate, 8, tile.LongitudeWrap)
	if err != nil {
		t.Fatalf("failed to create provider: %s", err)
	}
	return provider
}

func testView(t *testing.T, provider tile.Provider, fetcher Fetcher, dir string) (*View, *display.Board) {
	t.Helper()
	lang, err := i18n.New("en")
	if err != nil {
		t.Fatalf("failed to create i18n provider: %s", err)
	}
	board := display.NewBoard(lang)
	view, err := New(provider, fetcher, board, dir, logger.NewLogger(slog.LevelDebug, io.Discard))
	if err != nil {
		t.Fatalf("failed to create view: %s", err)
	}
	return view, board
}

func testPosition(latitude, longitude float64) fields.Position {
	return fields.Position{
		Latitude:  vartype.NewVariable(latitude),
		Longitude: vartype.NewVariable(longitude),
	}
}
