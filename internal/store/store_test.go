package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/pyexpl/internal/config"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// backends returns one of each KV implementation for contract tests.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	ctx := context.Background()

	fileKV, err := NewFileKV(filepath.Join(t.TempDir(), "selection"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Store.Backend = config.StoreSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "pyexpl.db")
	sqliteKV, closer, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(nil),
		"file":   fileKV,
		"sqlite": sqliteKV,
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, KeyEditorCode)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, KeyEditorCode, "print(1)\n"))
			got, err := kv.Get(ctx, KeyEditorCode)
			require.NoError(t, err)
			assert.Equal(t, "print(1)\n", got)

			require.NoError(t, kv.Set(ctx, KeyEditorCode, ""))
			got, err = kv.Get(ctx, KeyEditorCode)
			require.NoError(t, err)
			assert.Equal(t, "", got, "empty value is a value, not a miss")
		})
	}
}

func TestFileKV_RejectsPathKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		err := kv.Set(context.Background(), key, "x")
		var verr *errors.ValidationError
		assert.True(t, errors.As(err, &verr), "key %q", key)
	}
}

func TestFileKV_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), KeySelectedRunners, `["mypy"]`))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KeySelectedRunners, entries[0].Name())
}

func TestSelection_LoadRunnerSet(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		want   runner.Set
	}{
		{"absent", nil, runner.Set{runner.Default}},
		{"valid", ptr(`["python3-13","mypy"]`), runner.Set{"python3-13", "mypy"}},
		{"preserves order", ptr(`["pyre","python3-8","mypy"]`), runner.Set{"pyre", "python3-8", "mypy"}},
		{"not json", ptr(`python3-13`), runner.Set{runner.Default}},
		{"object", ptr(`{"a":1}`), runner.Set{runner.Default}},
		{"string", ptr(`"python3-13"`), runner.Set{runner.Default}},
		{"empty array", ptr(`[]`), runner.Set{runner.Default}},
		{"non-string element", ptr(`["python3-13", 7]`), runner.Set{runner.Default}},
		{"null", ptr(`null`), runner.Set{runner.Default}},
		{"blank names", ptr(`["", "  "]`), runner.Set{runner.Default}},
		{"escaped tab", ptr(`["\t"]`), runner.Set{runner.Default}},
		{"blank beside valid", ptr(`["", "mypy"]`), runner.Set{"", "mypy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV(nil)
			if tt.stored != nil {
				require.NoError(t, kv.Set(context.Background(), KeySelectedRunners, *tt.stored))
			}
			sel := NewSelection(kv, nil)
			assert.Equal(t, tt.want, sel.LoadRunnerSet(context.Background()))
		})
	}
}

func TestSelection_CorruptionLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	kv := NewMemoryKV(map[string]string{KeySelectedRunners: "{broken"})
	sel := NewSelection(kv, logging.NewWithWriter(&buf, logging.LevelDebug))

	assert.Equal(t, runner.Set{runner.Default}, sel.LoadRunnerSet(context.Background()))
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), "runner selection corrupted")
}

func TestSelection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sel := NewSelection(kv, nil)
			set := runner.Set{"python3-12", "ruff-check", "python3-14"}
			sel.SaveRunnerSet(ctx, set)
			assert.Equal(t, set, sel.LoadRunnerSet(ctx))

			raw, err := kv.Get(ctx, KeySelectedRunners)
			require.NoError(t, err)
			assert.Equal(t, `["python3-12","ruff-check","python3-14"]`, raw)
		})
	}
}

func TestSelection_SaveEmptySetLoadsDefault(t *testing.T) {
	ctx := context.Background()
	sel := NewSelection(NewMemoryKV(nil), nil)
	sel.SaveRunnerSet(ctx, runner.Set{})
	assert.Equal(t, runner.Set{runner.Default}, sel.LoadRunnerSet(ctx))
}

func TestSelection_Code(t *testing.T) {
	ctx := context.Background()
	sel := NewSelection(NewMemoryKV(nil), nil)

	assert.Equal(t, DefaultCode, sel.LoadCode(ctx))

	sel.SaveCode(ctx, "print('hi')")
	assert.Equal(t, "print('hi')", sel.LoadCode(ctx))

	sel.SaveCode(ctx, "")
	assert.Equal(t, "", sel.LoadCode(ctx))
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}
func (failingKV) Set(context.Context, string, string) error { return errors.New("disk on fire") }

func TestSelection_FailuresNeverSurface(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	sel := NewSelection(failingKV{}, logging.NewWithWriter(&buf, logging.LevelDebug))

	assert.Equal(t, runner.Set{runner.Default}, sel.LoadRunnerSet(ctx))
	assert.Equal(t, DefaultCode, sel.LoadCode(ctx))
	sel.SaveRunnerSet(ctx, runner.Set{"mypy"})
	sel.SaveCode(ctx, "x")

	assert.Equal(t, 2, strings.Count(buf.String(), `"level":"WARN"`))
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()

	cfg.Store.Backend = config.StoreFile
	kv, closer, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)
	assert.NoError(t, closer.Close())
	assert.DirExists(t, filepath.Join(cfg.Paths.StateDir, "selection"))

	cfg.Store.Backend = config.StoreMemory
	kv, _, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	cfg.Store.Backend = "redis"
	_, _, err = Open(ctx, cfg)
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }
