// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"github.com/wneessen/gypsy-status/internal/config"
	"github.com/wneessen/gypsy-status/internal/gpsd"
	"github.com/wneessen/gypsy-status/internal/gypsy"
	"github.com/wneessen/gypsy-status/internal/http"
	"github.com/wneessen/gypsy-status/internal/mapview"
	"github.com/wneessen/gypsy-status/internal/tile"
)

func (s *Service) selectSource() (Source, error) {
	switch strings.ToLower(s.config.Source.Type) {
	case config.SourceGypsy:
		return gypsy.New(s.config.Source.Device, s.logger), nil
	case config.SourceGPSD:
		return gpsd.New(s.config.Source.GPSDAddress, s.logger), nil
	default:
		return nil, fmt.Errorf("unsupported location source: %s", s.config.Source.Type)
	}
}

func (s *Service) selectMapProvider() (provider tile.Provider, err error) {
	conf := s.config.Map
	policy, err := tile.ParseLongitudePolicy(conf.LongitudePolicy)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(conf.Provider) {
	case config.ProviderQuadkey:
		provider, err = tile.NewQuadkeyProvider(conf.URLTemplate, conf.Depth, policy)
	case config.ProviderRounded:
		provider, err = tile.NewRoundedCoordProvider(conf.Endpoint, conf.AppID, conf.ImageWidth,
			conf.ImageHeight, conf.Zoom, policy)
	case config.ProviderXYZ:
		provider, err = tile.NewXYZProvider(conf.URLTemplate, conf.Zoom, policy)
	default:
		return nil, fmt.Errorf("unsupported map provider: %s", conf.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s map provider: %w", conf.Provider, err)
	}
	return provider, nil
}

func (s *Service) createMapView() (*mapview.View, error) {
	provider, err := s.selectMapProvider()
	if err != nil {
		return nil, err
	}
	return mapview.New(provider, http.New(s.logger), s.board, s.config.Map.CacheDir, s.logger)
}
