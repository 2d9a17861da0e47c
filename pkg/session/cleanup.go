package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/golemcli/golem/internal/observability"
)

const (
	DefaultRetention   = 7 * 24 * time.Hour
	DefaultMaxMessages = 500
	defaultCleanupCron = "@daily"
)

// Cleanup prunes oversized sessions and deletes sessions past their
// retention age on a cron schedule.
type Cleanup struct {
	store       *Store
	retention   time.Duration
	maxMessages int
	schedule    string
	cron        *cron.Cron
}

// NewCleanup creates a cleanup job for the store. Zero values fall back to
// DefaultRetention and DefaultMaxMessages.
func NewCleanup(store *Store, retention time.Duration, maxMessages int) *Cleanup {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Cleanup{
		store:       store,
		retention:   retention,
		maxMessages: maxMessages,
		schedule:    defaultCleanupCron,
	}
}

// SetSchedule overrides the cron schedule. It has no effect while the
// job is running.
func (c *Cleanup) SetSchedule(spec string) {
	if spec != "" {
		c.schedule = spec
	}
}

// Start schedules the cleanup job and runs one pass immediately.
func (c *Cleanup) Start() error {
	if c.cron != nil {
		return fmt.Errorf("cleanup is already running")
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.Run(); err != nil {
			log.Error().Err(err).Msg("Session cleanup failed")
		}
	}); err != nil {
		c.cron = nil
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	c.cron.Start()

	go func() {
		if err := c.Run(); err != nil {
			log.Error().Err(err).Msg("Initial session cleanup failed")
		}
	}()

	log.Info().
		Dur("retention", c.retention).
		Int("max_messages", c.maxMessages).
		Str("schedule", c.schedule).
		Msg("Session cleanup started")

	return nil
}

// Stop cancels the scheduled job.
func (c *Cleanup) Stop() error {
	if c.cron == nil {
		return fmt.Errorf("cleanup is not running")
	}
	c.cron.Stop()
	c.cron = nil

	log.Info().Msg("Session cleanup stopped")
	return nil
}

// IsRunning reports whether the job is scheduled.
func (c *Cleanup) IsRunning() bool {
	return c.cron != nil
}

// Run performs one cleanup pass: prune every session down to the message
// bound, then delete sessions whose last activity predates the retention
// window.
func (c *Cleanup) Run() error {
	keys, err := c.store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	now := time.Now()
	deleted := 0

	for _, key := range keys {
		if err := c.prune(key); err != nil {
			log.Warn().Str("session_key", key).Err(err).Msg("Failed to prune session")
		}

		info, err := c.store.GetInfo(key)
		if err != nil {
			log.Warn().Str("session_key", key).Err(err).Msg("Failed to stat session")
			continue
		}

		age := now.Sub(info.LastModified)
		if age < c.retention {
			continue
		}
		if err := c.store.Delete(key); err != nil {
			log.Error().Str("session_key", key).Err(err).Msg("Failed to delete expired session")
			continue
		}
		deleted++
		log.Debug().Str("session_key", key).Dur("age", age).Msg("Expired session deleted")
	}

	if deleted > 0 {
		observability.RecordSessionsPruned(deleted)
		log.Info().Int("deleted", deleted).Msg("Cleaned up expired sessions")
	}

	return nil
}

// prune trims a session to its most recent maxMessages entries.
func (c *Cleanup) prune(key string) error {
	messages, err := c.store.Load(key)
	if err != nil {
		return err
	}
	if len(messages) <= c.maxMessages {
		return nil
	}

	kept := messages[len(messages)-c.maxMessages:]
	if err := c.store.Replace(key, kept); err != nil {
		return err
	}

	log.Debug().
		Str("session_key", key).
		Int("from", len(messages)).
		Int("to", len(kept)).
		Msg("Session pruned")

	return nil
}

// Stats summarizes the cleanup state for diagnostics.
func (c *Cleanup) Stats() (map[string]interface{}, error) {
	keys, err := c.store.List()
	if err != nil {
		return nil, err
	}

	eligible := 0
	now := time.Now()
	for _, key := range keys {
		info, err := c.store.GetInfo(key)
		if err != nil {
			continue
		}
		if now.Sub(info.LastModified) >= c.retention {
			eligible++
		}
	}

	return map[string]interface{}{
		"total_sessions":       len(keys),
		"eligible_for_cleanup": eligible,
		"retention":            c.retention.String(),
		"max_messages":         c.maxMessages,
		"running":              c.IsRunning(),
	}, nil
}
