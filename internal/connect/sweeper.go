package connect

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/events"
	"github.com/opsai/onboarding-backend/internal/onboarding"
)

// Sweeper fails integrations stuck in the connecting status with no live
// waiter. That only happens when the process restarted mid-attempt; the
// waiter's own timeout covers everything else.
type Sweeper struct {
	service *Service
	cron    *cron.Cron
	logger  *zap.Logger
}

func NewSweeper(service *Service, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		service: service,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start schedules the sweep every minute.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 1m", s.sweep)
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

func (s *Sweeper) sweep() {
	for _, sess := range s.service.sessions.All() {
		for _, in := range sess.State().Integrations {
			if in.ConnectionStatus != onboarding.ConnectionConnecting {
				continue
			}
			key := waiterKey{session: sess.ID, provider: in.ID}
			s.service.mu.Lock()
			_, live := s.service.waiters[key]
			s.service.mu.Unlock()
			if live {
				continue
			}
			s.logger.Warn("Failing orphaned connection attempt",
				zap.String("session_id", sess.ID.String()),
				zap.String("provider", in.ID))
			s.service.resolve(sess, in.ID, onboarding.ConnectionError,
				"connection attempt was interrupted", events.TypeIntegrationError)
		}
	}
}
