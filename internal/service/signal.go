// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals reacts to the user signals: SIGUSR1 toggles the alternative text, SIGUSR2 logs the
// current fix and position.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.displayAltLock.Lock()
				s.displayAltText = !s.displayAltText
				s.displayAltLock.Unlock()
				s.printStatus(ctx)
			case syscall.SIGUSR2:
				s.logCurrentState()
			}
		}
	}
}

// logCurrentState logs the board's view of the location. It reads only the board, since the map
// state belongs to the event loop.
func (s *Service) logCurrentState() {
	snap := s.board.Snapshot()
	s.logger.Info("current location state", slog.String("source", s.source.Name()),
		slog.String("fix", snap.FixStatus.String()),
		slog.String("latitude", snap.Position.Latitude.String()),
		slog.String("longitude", snap.Position.Longitude.String()),
		slog.String("tile", snap.MapTile.Address), slog.Int("satellites", snap.SatellitesInUse))
}
