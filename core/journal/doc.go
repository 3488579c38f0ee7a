// Package journal persists one record per control cycle so that runs can be
// replayed, audited and exported. Three backends are available: a plain JSONL
// file, a JSONL file rotated with lumberjack and a SQLite database.
package journal
