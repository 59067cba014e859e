package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// RetentionWorker prunes aged session archives and expired credentials.
type RetentionWorker struct {
	db     *sqlx.DB
	logger *zap.Logger
	config RetentionWorkerConfig
	done   chan struct{}
}

// RetentionWorkerConfig configuration for the retention worker
type RetentionWorkerConfig struct {
	SweepInterval    time.Duration
	ArchiveRetention time.Duration
	TokenGrace       time.Duration
}

// DefaultRetentionWorkerConfig returns default configuration
func DefaultRetentionWorkerConfig() RetentionWorkerConfig {
	return RetentionWorkerConfig{
		SweepInterval:    time.Hour,
		ArchiveRetention: 90 * 24 * time.Hour,
		TokenGrace:       7 * 24 * time.Hour,
	}
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(db *sqlx.DB, logger *zap.Logger, config RetentionWorkerConfig) *RetentionWorker {
	return &RetentionWorker{
		db:     db,
		logger: logger,
		config: config,
		done:   make(chan struct{}),
	}
}

// Start starts the retention worker
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting retention worker",
		zap.Duration("sweep_interval", w.config.SweepInterval),
		zap.Duration("archive_retention", w.config.ArchiveRetention))

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop stops the retention worker
func (w *RetentionWorker) Stop() {
	close(w.done)
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	archiveCutoff := time.Now().Add(-w.config.ArchiveRetention)
	result, err := w.db.ExecContext(ctx,
		`DELETE FROM session_archives WHERE saved_at < $1`, archiveCutoff)
	if err != nil {
		w.logger.Error("Failed to prune session archives", zap.Error(err))
	} else if rows, _ := result.RowsAffected(); rows > 0 {
		w.logger.Info("Pruned session archives", zap.Int64("rows", rows))
	}

	// Zero expires_at means the provider issued a non-expiring token.
	tokenCutoff := time.Now().Add(-w.config.TokenGrace)
	result, err = w.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE expires_at > $1 AND expires_at < $2`,
		time.Time{}.Add(time.Second), tokenCutoff)
	if err != nil {
		w.logger.Error("Failed to prune expired credentials", zap.Error(err))
	} else if rows, _ := result.RowsAffected(); rows > 0 {
		w.logger.Info("Pruned expired credentials", zap.Int64("rows", rows))
	}
}
