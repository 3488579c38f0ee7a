package journal

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/surveillance"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleRecords() []Record {
	return []Record{
		{Time: base, PackID: "p1", RunID: "r1", Output: model.CycleOutput{Binding: model.ConstraintNone}},
		{Time: base.Add(time.Second), PackID: "p1", RunID: "r1", Output: model.CycleOutput{Binding: model.ConstraintUMax}},
		{Time: base.Add(2 * time.Second), PackID: "p2", RunID: "r1", Output: model.CycleOutput{Binding: model.ConstraintUMax},
			Alerts: surveillance.Alerts{Voltage: true}},
		{Time: base.Add(3 * time.Second), PackID: "p1", RunID: "r2", Output: model.CycleOutput{Binding: model.ConstraintSOCMax}},
	}
}

// exerciseStore runs the same query matrix against every backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range sampleRecords() {
		require.NoError(t, store.Append(ctx, r))
	}
	cases := []struct {
		name string
		q    Query
		want int
	}{
		{"all", Query{}, 4},
		{"pack", Query{PackID: "p1"}, 3},
		{"run", Query{RunID: "r2"}, 1},
		{"binding", Query{Binding: "u_max"}, 2},
		{"alerts", Query{AlertsOnly: true}, 1},
		{"window", Query{Start: base.Add(time.Second), End: base.Add(2 * time.Second)}, 2},
		{"limit", Query{Limit: 2}, 2},
		{"none", Query{PackID: "missing"}, 0},
	}
	for _, tc := range cases {
		out, err := store.Query(ctx, tc.q)
		require.NoError(t, err, tc.name)
		require.Len(t, out, tc.want, tc.name)
	}
	out, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.True(t, out[0].Time.Equal(base))
	require.Equal(t, model.ConstraintSOCMax, out[3].Output.Binding)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "journal.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	rec := Record{Time: base, PackID: "p1", RunID: strings.Repeat("x", 4096)}
	for i := 0; i < 400; i++ {
		rec.Time = base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, store.Append(context.Background(), rec))
	}
	backups, _ := filepath.Glob(filepath.Join(dir, "journal-*.jsonl"))
	if len(backups) == 0 {
		t.Fatalf("expected rotated files")
	}
	out, err := store.Query(context.Background(), Query{PackID: "p1"})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for i := 1; i < len(out); i++ {
		require.False(t, out[i].Time.Before(out[i-1].Time), "records out of order at %d", i)
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore("file:journal_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		cfg  Config
		want any
	}{
		{Config{Backend: "none"}, NopStore{}},
		{Config{Backend: "jsonl", Path: filepath.Join(dir, "a.jsonl")}, &JSONLStore{}},
		{Config{Backend: "jsonl", Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 1}, &RotatingJSONLStore{}},
		{Config{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}, &SQLiteStore{}},
	}
	for _, tc := range cases {
		s, err := New(tc.cfg)
		require.NoError(t, err, tc.cfg.Backend)
		require.IsType(t, tc.want, s)
		require.NoError(t, s.Close())
	}
	_, err := New(Config{Backend: "csv"})
	require.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	require.Equal(t, "none", c.Backend)
	require.NoError(t, c.Validate())

	c = Config{Backend: "sqlite"}
	c.SetDefaults()
	require.Equal(t, "sop_journal.db", c.Path)
	require.NoError(t, c.Validate())

	err := Config{Backend: "csv", Path: "x"}.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ErrUnknownBackend)
	require.ErrorIs(t, Config{Backend: "jsonl"}.Validate(), ErrInvalidConfig)
	require.ErrorIs(t, Config{Backend: "jsonl", Path: "x", MaxBackups: -1}.Validate(), ErrInvalidConfig)
}

func TestSinkAppendsEvents(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "sink.jsonl"))
	require.NoError(t, err)
	sink := NewSink(store)
	require.NoError(t, sink.RecordCycle(metrics.CycleEvent{PackID: "p9", Time: base,
		Output: model.CycleOutput{ChargePower: 12.5}}))
	out, err := store.Query(context.Background(), Query{PackID: "p9"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 12.5, out[0].Output.ChargePower)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Backend: "none"}.Enabled())
	assert.True(t, Config{Backend: "sqlite"}.Enabled())
}
