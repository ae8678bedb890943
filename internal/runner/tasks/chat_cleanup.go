// Package tasks provides background task implementations for the runner.
package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/transitdesk/transitdesk/internal/chat"
	"github.com/transitdesk/transitdesk/internal/config"
)

// Default interval if not configured (5 minutes).
const defaultCleanupInterval = 5 * time.Minute

// ChatCleanupTask closes chat sessions that have been idle past the
// configured timeout, releasing the owning agent's capacity.
type ChatCleanupTask struct {
	chatSvc     *chat.Service
	idleTimeout time.Duration
	interval    time.Duration
	logger      *log.Logger
}

// NewChatCleanupTask creates the cleanup task. A zero interval falls back
// to the loaded config, then to the default.
func NewChatCleanupTask(chatSvc *chat.Service, idleTimeout, interval time.Duration) *ChatCleanupTask {
	if interval <= 0 {
		interval = defaultCleanupInterval
		if cfg := config.Get(); cfg != nil && cfg.Runner.CleanupInterval > 0 {
			interval = cfg.Runner.CleanupInterval
		}
	}
	return &ChatCleanupTask{
		chatSvc:     chatSvc,
		idleTimeout: idleTimeout,
		interval:    interval,
		logger:      log.New(log.Writer(), "[CHAT-CLEANUP] ", log.LstdFlags),
	}
}

// Name returns the task name.
func (t *ChatCleanupTask) Name() string {
	return "chat-cleanup"
}

// Schedule returns the cron schedule based on the configured interval.
// Minute-based intervals only; anything past an hour runs hourly.
func (t *ChatCleanupTask) Schedule() string {
	minutes := int(t.interval.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes >= 60 {
		return "0 0 * * * *"
	}
	return fmt.Sprintf("0 */%d * * * *", minutes)
}

// Timeout returns the task timeout (2 minutes).
func (t *ChatCleanupTask) Timeout() time.Duration {
	return 2 * time.Minute
}

// Run closes idle sessions. A zero idle timeout disables the task.
func (t *ChatCleanupTask) Run(ctx context.Context) error {
	if t.idleTimeout <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-t.idleTimeout)
	closed, err := t.chatSvc.CloseIdle(cutoff)
	if err != nil {
		return fmt.Errorf("idle session cleanup failed: %w", err)
	}
	if closed > 0 {
		t.logger.Printf("closed %d idle sessions (idle > %v)", closed, t.idleTimeout)
	}
	return nil
}
