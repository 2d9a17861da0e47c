package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/golemcli/golem/internal/observability"
	"github.com/golemcli/golem/pkg/conversation"
)

// ErrSessionNotFound is returned when the named session has no file on disk.
var ErrSessionNotFound = errors.New("session not found")

// Info is persisted metadata about one session.
type Info struct {
	Key          string    `json:"key"`
	MessageCount int       `json:"message_count"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store persists one JSONL file per session. Messages append as single JSON
// lines; an optional Index mirrors per-session metadata into SQLite.
type Store struct {
	dir        string
	index      *Index
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
// An empty dir defaults to ~/.golem/sessions.
func NewStore(dir string) (*Store, error) {
	observability.EnsureRegistered()

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".golem", "sessions")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	s := &Store{
		dir:        dir,
		writeLocks: make(map[string]*sync.Mutex),
	}

	log.Info().Str("dir", dir).Msg("Session store initialized")
	s.updateActiveSessionsMetric()

	return s, nil
}

// NewStoreWithIndex creates a Store whose metadata is mirrored into the
// SQLite database at indexPath.
func NewStoreWithIndex(dir, indexPath string) (*Store, error) {
	s, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}
	s.index = idx
	if err := s.reindex(); err != nil {
		log.Warn().Err(err).Msg("Failed to rebuild session index")
	}
	return s, nil
}

// NewSessionKey generates a fresh unique session key.
func NewSessionKey() string {
	return uuid.NewString()
}

// validateKey rejects keys that could escape the sessions directory.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("session key cannot contain '..'")
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("session key cannot contain path separators")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("session key cannot contain null bytes")
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".jsonl")
}

func (s *Store) lock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if l, ok := s.writeLocks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.writeLocks[key] = l
	return l
}

func (s *Store) releaseLock(key string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	delete(s.writeLocks, key)
}

func (s *Store) updateActiveSessionsMetric() {
	keys, err := s.List()
	if err != nil {
		return
	}
	observability.SetActiveSessions(len(keys))
}

// Create makes an empty session file. Creating an existing session is a
// no-op.
func (s *Store) Create(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	path := s.path(key)
	if _, err := os.Stat(path); err == nil {
		log.Debug().Str("session_key", key).Msg("Session already exists")
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	file.Close()

	s.touchIndex(key)
	s.updateActiveSessionsMetric()
	log.Info().Str("session_key", key).Msg("Session created")

	return nil
}

// Append writes one message as a JSON line, creating the session if needed.
func (s *Store) Append(key string, msg conversation.Message) error {
	start := time.Now()
	defer func() {
		observability.RecordSessionSave(time.Since(start))
	}()

	if err := validateKey(key); err != nil {
		return err
	}
	if msg.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	lock := s.lock(key)
	lock.Lock()
	defer lock.Unlock()

	path := s.path(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Create(key); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	s.touchIndex(key)
	log.Debug().Str("session_key", key).Str("role", string(msg.Role)).Msg("Message appended")

	return nil
}

// Load reads all messages of a session in order. Corrupt lines are skipped
// with a warning. Fails with ErrSessionNotFound if the session has no file.
func (s *Store) Load(key string) ([]conversation.Message, error) {
	start := time.Now()
	defer func() {
		observability.RecordSessionLoad(time.Since(start))
	}()

	if err := validateKey(key); err != nil {
		return nil, err
	}

	path := s.path(key)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
		}
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var messages []conversation.Message
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var msg conversation.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			log.Warn().Str("session_key", key).Int("line", lineNum).Err(err).Msg("Failed to parse line, skipping")
			continue
		}
		if msg.Role == "" {
			log.Warn().Str("session_key", key).Int("line", lineNum).Msg("Invalid entry, skipping")
			continue
		}
		messages = append(messages, msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	log.Debug().Str("session_key", key).Int("messages", len(messages)).Msg("Session loaded")

	return messages, nil
}

// Replace atomically rewrites a session with the given messages.
func (s *Store) Replace(key string, messages []conversation.Message) error {
	if err := validateKey(key); err != nil {
		return err
	}

	lock := s.lock(key)
	lock.Lock()
	defer lock.Unlock()

	path := s.path(key)
	tempPath := path + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			file.Close()
			os.Remove(tempPath)
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			file.Close()
			os.Remove(tempPath)
			return fmt.Errorf("failed to write message: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.touchIndex(key)
	return nil
}

// Repair rewrites a session file dropping any corrupt lines.
func (s *Store) Repair(key string) error {
	messages, err := s.Load(key)
	if err != nil {
		return err
	}
	if err := s.Replace(key, messages); err != nil {
		return err
	}

	log.Info().Str("session_key", key).Int("messages", len(messages)).Msg("Session repaired")
	return nil
}

// Delete removes a session file. Deleting a missing session is a no-op.
func (s *Store) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	lock := s.lock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	s.releaseLock(key)
	if s.index != nil {
		if err := s.index.Remove(key); err != nil {
			log.Warn().Str("session_key", key).Err(err).Msg("Failed to remove session from index")
		}
	}
	s.updateActiveSessionsMetric()

	log.Info().Str("session_key", key).Msg("Session deleted")
	return nil
}

// List returns all session keys found on disk.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".jsonl"))
	}
	return keys, nil
}

// GetInfo returns metadata about one session.
func (s *Store) GetInfo(key string) (Info, error) {
	if err := validateKey(key); err != nil {
		return Info{}, err
	}

	stat, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
		}
		return Info{}, fmt.Errorf("failed to stat session file: %w", err)
	}

	messages, err := s.Load(key)
	if err != nil {
		return Info{}, err
	}

	return Info{
		Key:          key,
		MessageCount: len(messages),
		Size:         stat.Size(),
		LastModified: stat.ModTime(),
	}, nil
}

// Index returns the metadata index, nil when the store runs without one.
func (s *Store) Index() *Index {
	return s.index
}

func (s *Store) touchIndex(key string) {
	if s.index == nil {
		return
	}
	info, err := s.GetInfo(key)
	if err != nil {
		return
	}
	if err := s.index.Touch(info); err != nil {
		log.Warn().Str("session_key", key).Err(err).Msg("Failed to update session index")
	}
}

// reindex rebuilds the SQLite index from the files on disk.
func (s *Store) reindex() error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	for _, key := range keys {
		info, err := s.GetInfo(key)
		if err != nil {
			continue
		}
		if err := s.index.Touch(info); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the store's locks and closes the index if present.
func (s *Store) Close() error {
	s.locksMu.Lock()
	s.writeLocks = make(map[string]*sync.Mutex)
	s.locksMu.Unlock()

	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return err
		}
	}

	log.Info().Msg("Session store closed")
	return nil
}
