// Package settings holds runtime-adjustable system settings.
//
// Values live in process memory only. A restart resets them to their
// defaults (maintenance mode off).
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
)

const (
	KeyMaintenanceMode = "maintenance_mode"
	KeyMaxFileSize     = "max_file_size"
)

// Setting is the wire shape of one entry.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
	ReadOnly    bool   `json:"read_only"`
}

var (
	ErrUnknownKey   = errors.New("unknown setting")
	ErrReadOnly     = errors.New("setting is read-only")
	ErrInvalidValue = errors.New("invalid setting value")
)

// Store is safe for concurrent use.
type Store struct {
	maintenance   atomic.Bool
	maxFileSizeMB int
}

func New(maxFileSizeMB int) *Store {
	return &Store{maxFileSizeMB: maxFileSizeMB}
}

func (s *Store) Maintenance() bool {
	return s.maintenance.Load()
}

func (s *Store) SetMaintenance(on bool) {
	s.maintenance.Store(on)
}

// List returns every setting with its current value.
func (s *Store) List() []Setting {
	return []Setting{
		{
			Key:         KeyMaintenanceMode,
			Value:       strconv.FormatBool(s.Maintenance()),
			Type:        "boolean",
			Description: "Reject tenant and public requests with 503",
		},
		{
			Key:         KeyMaxFileSize,
			Value:       strconv.Itoa(s.maxFileSizeMB),
			Type:        "number",
			Description: "Maximum upload size in MB",
			ReadOnly:    true,
		},
	}
}

// Update sets key to value. Only maintenance_mode is writable.
func (s *Store) Update(key, value string) (Setting, error) {
	switch key {
	case KeyMaintenanceMode:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return Setting{}, fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
		s.SetMaintenance(on)
	case KeyMaxFileSize:
		return Setting{}, fmt.Errorf("%w: %s", ErrReadOnly, key)
	default:
		return Setting{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	for _, st := range s.List() {
		if st.Key == key {
			return st, nil
		}
	}
	return Setting{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}
