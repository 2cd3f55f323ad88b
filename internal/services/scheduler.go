package services

import (
	"context"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"

	"go.uber.org/zap"
)

// Scheduler runs the daily maintenance pass: streaks that lapsed over the
// previous day are zeroed shortly after UTC midnight, and machine state
// for long-abandoned sessions is released. The check ticks once a minute
// and fires when the clock reads the rollover minute, so a missed tick
// costs at most a minute of delay.
type Scheduler struct {
	log   *zap.Logger
	evict func(sessionID string)
	stop  chan struct{}
}

// NewScheduler wires the maintenance pass. evict releases one session's
// in-memory machine state; nil disables the sweep.
func NewScheduler(log *zap.Logger, evict func(sessionID string)) *Scheduler {
	return &Scheduler{log: log, evict: evict, stop: make(chan struct{})}
}

func (s *Scheduler) Start() {
	go s.loop()
	s.log.Info("Maintenance scheduler started")
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun string
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			utc := now.UTC()
			if utc.Format("15:04") != "00:00" {
				continue
			}
			day := utc.Format("2006-01-02")
			if day == lastRun {
				continue
			}
			lastRun = day
			s.runDaily(utc)
		}
	}
}

func (s *Scheduler) runDaily(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Anyone who last completed before yesterday's midnight has broken
	// their streak.
	cutoff := utcMidnight(now).Add(-24 * time.Hour)
	expired, err := repository.ExpireLapsedStreaks(ctx, cutoff)
	if err != nil {
		s.log.Error("Failed to expire lapsed streaks", zap.Error(err))
		return
	}
	swept := 0
	if s.evict != nil {
		// Sessions idle for a full day are considered abandoned; their
		// rows stay, only the machine's in-memory state goes.
		staleIDs, err := repository.StaleInProgressSessionIDs(ctx, now.Add(-24*time.Hour))
		if err != nil {
			s.log.Error("Failed to list abandoned sessions", zap.Error(err))
		} else {
			for _, id := range staleIDs {
				s.evict(id)
			}
			swept = len(staleIDs)
		}
	}

	s.log.Info("Daily maintenance completed",
		zap.Int64("streaks_expired", expired),
		zap.Int("sessions_swept", swept),
		zap.Time("cutoff", cutoff),
	)
}
