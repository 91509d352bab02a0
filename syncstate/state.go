package syncstate

import (
	"fmt"
	"time"
)

// SyncMethod names the strategy used to sync a table.
type SyncMethod string

const (
	SyncMethodFull      SyncMethod = "full"
	SyncMethodKeyBased  SyncMethod = "key_based"
	SyncMethodTimestamp SyncMethod = "timestamp"
)

// ParseSyncMethod validates s.
func ParseSyncMethod(s string) (SyncMethod, error) {
	switch m := SyncMethod(s); m {
	case SyncMethodFull, SyncMethodKeyBased, SyncMethodTimestamp:
		return m, nil
	}
	return "", fmt.Errorf("unknown sync method %q", s)
}

// SyncState is the persisted progress of one table.
type SyncState struct {
	TableName    string
	LastSyncTime time.Time
	LastKeyValue *string // nil when no key value has been recorded
	SyncMethod   SyncMethod
	RowCount     int64
}

// HasWatermark returns true if a key value has been recorded.
func (s *SyncState) HasWatermark() bool {
	return s != nil && s.LastKeyValue != nil && *s.LastKeyValue != ""
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
