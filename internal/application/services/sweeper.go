package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"attachment-manager-api/config"
	"attachment-manager-api/internal/application/ports"
)

// Sweeper periodically reclaims abandoned pending attachments. It shares
// the exact sweep path with the administrative cleanup endpoint.
type Sweeper struct {
	svc      ports.AttachmentService
	log      *zap.Logger
	interval time.Duration
	maxAge   time.Duration
}

func NewSweeper(svc ports.AttachmentService, logger *zap.Logger, cfg config.Attachments) *Sweeper {
	return &Sweeper{
		svc:      svc,
		log:      logger,
		interval: time.Duration(cfg.SweepIntervalMinutes) * time.Minute,
		maxAge:   time.Duration(cfg.SweepMaxAgeMinutes) * time.Minute,
	}
}

func (s *Sweeper) Worker(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("sweeper worker disabled")
		return
	}

	s.log.Info("starting sweeper worker",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)

	defer func() {
		s.log.Info("sweeper worker gracefully stopped")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.svc.SweepPendingAttachments(ctx, s.maxAge)
			if err != nil {
				s.log.Error("sweep error", zap.Int("deleted", n), zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("sweep completed", zap.Int("deleted", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
