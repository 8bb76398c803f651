package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Key format constants for persisted graphs
const (
	SnapshotKeyPrefix = "snap:"    // Prefix for graph snapshot keys
	JournalFileSuffix = ".journal" // Suffix of per-graph journal files
	DefaultGraphID    = "default"  // Graph addressed when a request names none
	MaxGraphIDLength  = 128
)

var graphIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateGraphID checks that id can be used as a storage key and a file name
func ValidateGraphID(id string) error {
	if id == "" {
		return fmt.Errorf("graph id is required")
	}
	if len(id) > MaxGraphIDLength {
		return fmt.Errorf("graph id exceeds %d characters", MaxGraphIDLength)
	}
	if !graphIDPattern.MatchString(id) {
		return fmt.Errorf("graph id %q may only contain letters, digits, '.', '_' and '-'", id)
	}
	return nil
}

// FormatUint64 formats a uint64 as a string
func FormatUint64(value uint64) string {
	return strconv.FormatUint(value, 10)
}

// ParseUint64 parses a string as a uint64
func ParseUint64(value string) (uint64, error) {
	return strconv.ParseUint(value, 10, 64)
}

// FormatSnapshotKey formats the storage key of a graph snapshot
func FormatSnapshotKey(graphID string) string {
	return SnapshotKeyPrefix + graphID
}

// ParseSnapshotKey returns the graph id of a snapshot key
func ParseSnapshotKey(key string) (string, bool) {
	if !strings.HasPrefix(key, SnapshotKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, SnapshotKeyPrefix), true
}

// FormatJournalFileName formats the journal file name of a graph
func FormatJournalFileName(graphID string) string {
	return graphID + JournalFileSuffix
}
