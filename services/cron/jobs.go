package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/auth"
)

const (
	emptySessionMaxAge = 24 * time.Hour
	cronLogRetention   = 90 * 24 * time.Hour
)

// RefreshConnectionStatus re-runs the completion service probe so the
// public status endpoint is served from a fresh cache entry
func (m *CronManager) RefreshConnectionStatus(ctx context.Context) (string, error) {
	result := m.probe.RefreshConnectionStatus(ctx)
	if result.Status != "success" {
		return "", fmt.Errorf("probe failed: %s", result.Message)
	}
	return result.Message, nil
}

// CleanupTokenBlacklist removes blacklist rows whose tokens have expired
func (m *CronManager) CleanupTokenBlacklist(ctx context.Context) (string, error) {
	removed, err := auth.NewBlacklistService(m.db).CleanupExpiredTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to clean token blacklist: %w", err)
	}
	return fmt.Sprintf("Cleaned %d expired tokens", removed), nil
}

// CleanupEmptySessions removes sessions that kept the default title and never
// received a message within a day of being opened
func (m *CronManager) CleanupEmptySessions(ctx context.Context) (string, error) {
	cutoff := time.Now().Add(-emptySessionMaxAge)
	result := m.db.WithContext(ctx).
		Where("title = ? AND message_count = 0 AND created_at < ?", model.DefaultSessionTitle, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM chat_messages WHERE chat_messages.session_id = chat_sessions.id)").
		Delete(&model.ChatSession{})
	if result.Error != nil {
		return "", fmt.Errorf("failed to clean empty sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("[CRON] Removed %d empty chat sessions", result.RowsAffected)
	}
	return fmt.Sprintf("Cleaned %d empty sessions", result.RowsAffected), nil
}

// CleanupOldLogs keeps only the last 90 days of cron job logs
func (m *CronManager) CleanupOldLogs(ctx context.Context) (string, error) {
	result := m.db.WithContext(ctx).Where("created_at < ?", time.Now().Add(-cronLogRetention)).Delete(&model.CronJobLog{})
	if result.Error != nil {
		return "", fmt.Errorf("failed to clean cron logs: %w", result.Error)
	}
	return fmt.Sprintf("Cleaned %d old cron logs", result.RowsAffected), nil
}
