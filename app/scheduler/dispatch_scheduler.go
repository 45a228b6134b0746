// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DispatchScheduler drives the two delivery cadences: the drip loop that
// sends due scheduled messages, and the slower follow-up loop that escalates
// unconfirmed leads. Both loops run until the parent context is cancelled.
type DispatchScheduler struct {
	dispatchFlow businessflow.DispatchFlow
	cfg          config.DispatchConfig
	logger       *log.Logger
}

func NewDispatchScheduler(dispatchFlow businessflow.DispatchFlow, cfg config.DispatchConfig) *DispatchScheduler {
	if cfg.DripInterval <= 0 {
		cfg.DripInterval = 5 * time.Minute
	}
	if cfg.FollowUpInterval <= 0 {
		cfg.FollowUpInterval = time.Hour
	}

	s := &DispatchScheduler{
		dispatchFlow: dispatchFlow,
		cfg:          cfg,
	}
	s.initLogger()
	return s
}

// initLogger configures a logger that writes to both stdout and a rotating
// file under data/ (or /data for containerized environments).
func (s *DispatchScheduler) initLogger() {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "dispatcher.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, rotator)
		s.logger = log.New(mw, "dispatcher ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}
	s.logger = log.Default()
	s.logger.Printf("dispatcher: could not create log file in any candidate directory, using stdout")
}

// Start launches both loops in background goroutines and returns a stop function
func (s *DispatchScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.cfg.DripInterval)
		defer ticker.Stop()

		s.runDripOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDripOnce(ctx)
			}
		}
	}()

	go s.startFollowUpWorker(ctx)

	return cancel
}

func (s *DispatchScheduler) runDripOnce(ctx context.Context) {
	result, err := s.dispatchFlow.ProcessDueMessages(ctx)
	if err != nil {
		s.logger.Printf("dispatcher: drip pass failed: %v", err)
		return
	}
	if result.Total == 0 {
		return
	}
	s.logger.Printf("dispatcher: drip pass processed=%d failed=%d total=%d", result.Processed, result.Failed, result.Total)
}

// startFollowUpWorker polls for due follow-ups on unconfirmed leads
func (s *DispatchScheduler) startFollowUpWorker(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FollowUpInterval)
	defer ticker.Stop()

	s.runFollowUpOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFollowUpOnce(ctx)
		}
	}
}

func (s *DispatchScheduler) runFollowUpOnce(ctx context.Context) {
	result, err := s.dispatchFlow.ProcessDueFollowUps(ctx)
	if err != nil {
		s.logger.Printf("dispatcher: follow-up pass failed: %v", err)
		return
	}
	if result.Total == 0 {
		return
	}
	s.logger.Printf("dispatcher: follow-up pass processed=%d failed=%d total=%d", result.Processed, result.Failed, result.Total)
}
