package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Cleaner sweeps expired sessions and snapshots past the retention window,
// returning how many of each were removed.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (sessions, snapshots int64, err error)
}

type CleanupJob struct {
	cleaner  Cleaner
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(cleaner Cleaner, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		cleaner:  cleaner,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions, snapshots, err := j.cleaner.CleanupExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cleanup sweep failed")
		return
	}
	if sessions > 0 || snapshots > 0 {
		log.Info().
			Int64("sessions", sessions).
			Int64("snapshots", snapshots).
			Msg("cleanup sweep removed expired records")
	}
}
