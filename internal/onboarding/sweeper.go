package onboarding

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper evicts idle wizard sessions on a schedule. Abandoned sessions hold
// live waiters and state in memory, so they are swept rather than kept until
// restart.
type Sweeper struct {
	store  *Store
	cron   *cron.Cron
	logger *zap.Logger
}

func NewSweeper(store *Store, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start schedules the sweep every 10 minutes.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 10m", func() {
		if removed := s.store.Sweep(); removed > 0 {
			s.logger.Info("Swept idle onboarding sessions", zap.Int("removed", removed))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
