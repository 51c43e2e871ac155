package cache

import (
	"strings"
	"time"

	"papertrade-api/internal/config"
)

// Namespace is the Redis key prefix for the papertrade application.
const Namespace = "papertrade"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Seconds returns the configured TTL in whole seconds, for Redis SETEX.
func (t TTLSet) Seconds(class TTLClass) int {
	return int(t.Duration(class) / time.Second)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// LedgerKey holds an agent's latest serialized ledger snapshot.
func LedgerKey(agentID string) string {
	return formatKey("ledger", agentID)
}

// MetricsKey holds the latest performance rollup for an agent.
func MetricsKey(agentID string) string {
	return formatKey("metrics", agentID)
}

// CycleLastKey caches a summary of the latest decision cycle.
func CycleLastKey(agentID string) string {
	return formatKey("cycle", "last", agentID)
}

// LedgerTTL returns the TTL for cached ledger snapshots.
func LedgerTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// MetricsTTL returns the TTL for cached performance rollups.
func MetricsTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// CycleLastTTL returns the TTL for last cycle summaries.
func CycleLastTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// FormatCacheKey is exported for dynamic key construction when patterns are
// not covered by the helpers above.
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}
