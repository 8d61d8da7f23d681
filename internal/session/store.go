package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the interface for session persistence.
type Store interface {
	// Session CRUD
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]Summary, error)

	// Message operations. AddMessage appends one message; ReplaceMessages
	// swaps the whole transcript for a snapshot (autosaver path).
	AddMessage(ctx context.Context, sessionID string, msg *Message) error
	ReplaceMessages(ctx context.Context, sessionID string, msgs []*Message) error
	GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)

	// Status and metrics
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateMetrics(ctx context.Context, id string, llmTurns, toolCalls, inputTokens, outputTokens int) error
	IncrementUserTurns(ctx context.Context, id string) error

	// Current session tracking (for resume)
	SetCurrent(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context) (*Session, error)
	ClearCurrent(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Config holds session storage configuration.
type Config struct {
	Disabled   bool   `mapstructure:"disabled"`     // master switch
	Dir        string `mapstructure:"dir"`          // data directory override
	MaxAgeDays int    `mapstructure:"max_age_days"` // auto-delete after N days (0 = never)
	MaxCount   int    `mapstructure:"max_count"`    // keep at most N sessions (0 = unlimited)
}

// GetDataDir returns the XDG data directory for term-agent.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share.
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "term-agent"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "term-agent"), nil
}

// DBPath returns the path to the sessions database for the given config.
func DBPath(cfg Config) (string, error) {
	if cfg.Dir != "" {
		return filepath.Join(cfg.Dir, "sessions.db"), nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions.db"), nil
}

// NewStore creates a Store based on the configuration. Disabled sessions get
// a no-op store.
func NewStore(cfg Config) (Store, error) {
	if cfg.Disabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}
