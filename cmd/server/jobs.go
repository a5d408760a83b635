// Package main provides the course chatbot server entry point.
package main

import (
	"context"
	"time"

	"github.com/gmaidana/cursos-chatbot-go/internal/chat"
	"github.com/gmaidana/cursos-chatbot-go/internal/config"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/metrics"
	"github.com/gmaidana/cursos-chatbot-go/internal/session"
	"github.com/gmaidana/cursos-chatbot-go/internal/storage"
)

// pruneTurnLog periodically removes audit rows older than the retention
// window. The first run waits for the server to stabilize.
func pruneTurnLog(ctx context.Context, db *storage.DB, retention time.Duration, log *logger.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(config.TurnLogPruneInitialDelay):
		performTurnLogPrune(ctx, db, retention, log)
	}

	ticker := time.NewTicker(config.TurnLogPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			performTurnLogPrune(ctx, db, retention, log)
		}
	}
}

func performTurnLogPrune(ctx context.Context, db *storage.DB, retention time.Duration, log *logger.Logger) {
	removed, err := db.PruneTurns(ctx, retention)
	if err != nil {
		log.WithError(err).Error("Failed to prune turn log")
		return
	}
	if removed > 0 {
		log.WithField("removed", removed).Info("Turn log pruned")
	}
}

// pruneSessions periodically drops session windows idle longer than the
// session timeout, so abandoned conversations release their memory.
func pruneSessions(ctx context.Context, sessions *session.Store, log *logger.Logger) {
	ticker := time.NewTicker(config.SessionPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.PruneIdle(config.SessionIdleTimeout); removed > 0 {
				log.WithField("removed", removed).Debug("Idle sessions pruned")
			}
		}
	}
}

// refreshSessionGauge keeps the active-session gauge current.
func refreshSessionGauge(ctx context.Context, service *chat.Service, m *metrics.Metrics) {
	ticker := time.NewTicker(config.GaugeRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetActiveSessions(service.ActiveSessions())
		}
	}
}
