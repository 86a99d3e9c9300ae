// Package storecmd provides the `lumberjack store` command tree.
//
// The commands operate directly on a local data directory; there is no
// server or network involved. They are intended for operators inspecting or
// maintaining a capture store out of band.
//
// Usage
//
//	lumberjack store export --data-dir /var/lib/lumberjack > records.jsonl
//
//	lumberjack store prune --data-dir /var/lib/lumberjack
//
//	lumberjack store stats --config /etc/lumberjack.yaml
//
// export writes one JSON object per durable record, compressed batch entries
// transparently expanded, in insertion order. prune runs the age and count
// eviction rules from the configuration. stats summarizes entry counts by
// variant and level.
package storecmd
