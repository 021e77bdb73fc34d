// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/gypsy-status/internal/config"
	"github.com/wneessen/gypsy-status/internal/display"
	"github.com/wneessen/gypsy-status/internal/fields"
	"github.com/wneessen/gypsy-status/internal/logger"
	"github.com/wneessen/gypsy-status/internal/mapview"
	"github.com/wneessen/gypsy-status/internal/presenter"
)

// Source delivers the location events of a GPS receiver.
type Source interface {
	Name() string
	// Stream emits events until ctx is cancelled.
	Stream(ctx context.Context) <-chan fields.Event
	// Resync asks the source to emit its current values again.
	Resync()
}

type outputData struct {
	Text    string   `json:"text"`
	Tooltip string   `json:"tooltip"`
	Classes []string `json:"class"`
}

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	board     *display.Board
	mapview   *mapview.View
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	source    Source
	jobs      []gocron.Job

	// watchSleep resyncs the source after the system resumed from sleep
	watchSleep func(context.Context)
	SignalSrc  signalSource

	outputLock sync.Mutex
	output     io.Writer

	displayAltLock sync.RWMutex
	displayAltText bool
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		t:         t,
		board:     display.NewBoard(t),
		presenter: pres,
		scheduler: scheduler,
		output:    os.Stdout,
		SignalSrc: stdLibSignalSource{},
	}
	service.watchSleep = service.monitorSleepResume

	if service.source, err = service.selectSource(); err != nil {
		return nil, fmt.Errorf("failed to create location source: %w", err)
	}
	if !conf.Map.Disable {
		if service.mapview, err = service.createMapView(); err != nil {
			return nil, fmt.Errorf("failed to create map view: %w", err)
		}
	}

	return service, nil
}

func (s *Service) Run(ctx context.Context) error {
	// Start scheduled jobs
	job, err := s.createScheduledJob(ctx, s.config.Intervals.Output, s.printStatus, "status_output_job")
	if err != nil {
		return err
	}
	s.jobs = append(s.jobs, job)
	s.scheduler.Start()

	// Route location events to the display
	go s.processEvents(ctx, s.source.Stream(ctx))
	go s.watchSleep(ctx)

	// Wait for the context to cancel
	<-ctx.Done()
	return s.scheduler.Shutdown()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) (gocron.Job, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return job, nil
}

// printStatus renders the current display state with the configured templates and writes it to the
// output as a single JSON line.
func (s *Service) printStatus(context.Context) {
	tplCtx := s.presenter.BuildContext(s.board.Snapshot())
	rendered, err := s.presenter.Render(tplCtx)
	if err != nil {
		s.logger.Error("failed to render templates", logger.Err(err))
		return
	}

	text := rendered["text"]
	s.displayAltLock.RLock()
	if s.displayAltText {
		text = rendered["alt_text"]
	}
	s.displayAltLock.RUnlock()

	output := outputData{
		Text:    text,
		Tooltip: rendered["tooltip"],
		Classes: tplCtx.Classes,
	}

	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err = json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode status data", logger.Err(err))
	}
}

// processEvents applies the events of the location source to the display until the context is
// cancelled or the source closes its stream.
func (s *Service) processEvents(ctx context.Context, events <-chan fields.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		}
	}
}

// handleEvent updates the display fields and, for position updates, the map view. Accepted map
// changes are printed right away instead of waiting for the next output interval.
func (s *Service) handleEvent(ctx context.Context, event fields.Event) {
	if event == nil {
		return
	}
	changed := s.board.Apply(event)
	s.logger.Debug("received location event", slog.String("source", s.source.Name()),
		slog.String("kind", event.Kind().String()), slog.Bool("changed", changed))

	position, ok := event.(fields.PositionEvent)
	if !ok || s.mapview == nil {
		return
	}
	updated, err := s.mapview.Handle(ctx, position.Decode())
	if err != nil {
		s.logger.Error("failed to update map", logger.Err(err),
			slog.String("provider", s.mapview.Provider().Name()))
		return
	}
	if updated {
		s.printStatus(ctx)
	}
}
