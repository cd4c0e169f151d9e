// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"time"

	"github.com/devblok/wind/config"
	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"
)

// newTime creates the tickers driving the frame and event loops.
func newTime(cfg config.TimeConfiguration) *timeService {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / time.Duration(cfg.FramesPerSecond)
	}
	pollDelay := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if pollDelay <= 0 {
		pollDelay = 10 * time.Millisecond
	}

	return &timeService{
		fps:         cfg.FramesPerSecond,
		fpsTicker:   time.NewTicker(interval),
		eventTicker: time.NewTicker(pollDelay),
		since:       hrtime.Now(),
	}
}

// timeService holds the tickers and the frame time statistics.
type timeService struct {
	fps         int
	fpsTicker   *time.Ticker
	eventTicker *time.Ticker

	since  time.Duration
	frames int
	total  time.Duration
	worst  time.Duration
}

func (t *timeService) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}

// Frame records how long one DrawFrame took and logs the statistics once
// a second.
func (t *timeService) Frame(took time.Duration) {
	t.frames++
	t.total += took
	if took > t.worst {
		t.worst = took
	}

	elapsed := hrtime.Since(t.since)
	if elapsed < time.Second {
		return
	}
	log.WithFields(log.Fields{
		"fps":   float64(t.frames) / elapsed.Seconds(),
		"avg":   t.total / time.Duration(t.frames),
		"worst": t.worst,
		"cap":   t.fps,
	}).Debug("Frame statistics")

	t.since = hrtime.Now()
	t.frames = 0
	t.total = 0
	t.worst = 0
}
