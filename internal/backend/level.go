package backend

import (
	"fmt"
	"strings"
)

// Level is the fixed severity set of captured records. There are no custom
// levels; the byte values are persisted in the level index and must not be
// renumbered.
type Level uint8

const (
	LevelError Level = iota
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

// String returns the canonical upper-case name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelNotice:
		return "NOTICE"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// Valid reports whether the level is one of the fixed set.
func (l Level) Valid() bool { return l <= LevelDebug }

// ParseLevel converts a level name (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "NOTICE":
		return LevelNotice, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("backend: unknown level %q", s)
	}
}

// Levels returns the fixed severity set in declaration order.
func Levels() []Level {
	return []Level{LevelError, LevelWarning, LevelNotice, LevelInfo, LevelDebug}
}
