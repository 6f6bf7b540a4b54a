// Package store persists the small amount of state shared between
// marqueed and the marquee CLI: the do-not-disturb flag and a short
// recent-notification history used for replay.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DnDTrigger records what flipped the do-not-disturb state.
type DnDTrigger string

const (
	// DnDTriggerUser is a user-initiated change (CLI, D-Bus call).
	DnDTriggerUser DnDTrigger = "user"
	// DnDTriggerSchedule is a quiet-hours schedule firing.
	DnDTriggerSchedule DnDTrigger = "schedule"
)

// DnDTransition records the last do-not-disturb state change.
type DnDTransition struct {
	Trigger   DnDTrigger `json:"trigger"`
	Reason    string     `json:"reason,omitempty"`
	Source    string     `json:"source,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// SharedState is persisted to state.json in the data directory.
type SharedState struct {
	DnDEnabled        bool           `json:"dnd_enabled"`
	DnDLastTransition *DnDTransition `json:"dnd_last_transition,omitempty"`

	LastNotificationAt int64 `json:"last_notification_at,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

// CurrentSchemaVersion is the current version of the state schema.
const CurrentSchemaVersion = 1

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// DataDir returns the marquee data directory, honoring XDG_DATA_HOME.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "marquee"), nil
}

// StateFilePath returns the path to the shared state file.
func StateFilePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "state.json"), nil
}

// HistoryPath returns the path to the recent-notification history file.
func HistoryPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.jsonl"), nil
}

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{
		DnDEnabled:    false,
		SchemaVersion: CurrentSchemaVersion,
	}
}

// LoadSharedState loads the shared state from disk. A missing or
// corrupted file yields the default state rather than an error.
func LoadSharedState() (*SharedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSharedState(), nil
		}
		return nil, err
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultSharedState(), nil
	}
	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	return &state, nil
}

// SaveSharedState writes the shared state atomically.
func SaveSharedState(state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	path, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// SetDnD updates the do-not-disturb state with transition tracking.
func (s *SharedState) SetDnD(enabled bool, trigger DnDTrigger, reason, source string) {
	s.DnDEnabled = enabled
	s.DnDLastTransition = &DnDTransition{
		Trigger:   trigger,
		Reason:    reason,
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
}

// ToggleDnD flips the do-not-disturb state and returns the new value.
func (s *SharedState) ToggleDnD(trigger DnDTrigger, reason, source string) bool {
	s.SetDnD(!s.DnDEnabled, trigger, reason, source)
	return s.DnDEnabled
}
