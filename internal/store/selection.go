package store

import (
	"context"
	"encoding/json"

	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// Storage keys.
const (
	KeyEditorCode      = "editor_code"
	KeySelectedRunners = "selected_runners"
)

// DefaultCode is shown in the editor when nothing was saved.
const DefaultCode = "import os, sys\nprint(sys.version)\nprint(os.listdir(\"/\"))\n"

// Selection persists the editor text and the ordered runner set. It never
// surfaces storage failures: reads fall back to defaults and write failures
// are logged.
type Selection struct {
	kv     KV
	logger *logging.Logger
}

// NewSelection creates a Selection over kv.
func NewSelection(kv KV, logger *logging.Logger) *Selection {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Selection{kv: kv, logger: logger.WithComponent("store")}
}

// LoadRunnerSet returns the persisted runner set, or [runner.Default] when the
// value is absent, unparsable, not a JSON array, empty, or contains anything
// other than strings. Stored values are returned as written.
func (s *Selection) LoadRunnerSet(ctx context.Context) runner.Set {
	fallback := runner.Set{runner.Default}

	raw, err := s.kv.Get(ctx, KeySelectedRunners)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug("runner selection unreadable, using default", "error", err)
		}
		return fallback
	}

	set, err := decodeRunnerSet(raw)
	if err != nil {
		s.logger.Debug("runner selection corrupted, using default",
			"error", errors.NewStorageError("decode failed", err).WithKey(KeySelectedRunners),
			"value", raw)
		return fallback
	}
	return set
}

func decodeRunnerSet(raw string) (runner.Set, error) {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, errors.Join(errors.ErrStorageCorrupted, err)
	}
	if len(items) == 0 {
		return nil, errors.Wrap(errors.ErrStorageCorrupted, "empty runner list")
	}
	set := make(runner.Set, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, errors.Wrapf(errors.ErrStorageCorrupted, "non-string runner %v", item)
		}
		set = append(set, runner.ID(str))
	}
	if len(runner.NormalizeAll(set.Strings())) == 0 {
		return nil, errors.Wrap(errors.ErrStorageCorrupted, "no usable runner names")
	}
	return set, nil
}

// SaveRunnerSet writes set through synchronously.
func (s *Selection) SaveRunnerSet(ctx context.Context, set runner.Set) {
	ids := set.Strings()
	data, err := json.Marshal(ids)
	if err != nil {
		s.logger.Error("encode runner selection", "error", err)
		return
	}
	if err := s.kv.Set(ctx, KeySelectedRunners, string(data)); err != nil {
		s.logger.Warn("persist runner selection failed", "error", err, "runners", ids)
	}
}

// LoadCode returns the persisted editor text or DefaultCode.
func (s *Selection) LoadCode(ctx context.Context) string {
	code, err := s.kv.Get(ctx, KeyEditorCode)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug("editor code unreadable, using example", "error", err)
		}
		return DefaultCode
	}
	return code
}

// SaveCode writes the editor text through synchronously.
func (s *Selection) SaveCode(ctx context.Context, text string) {
	if err := s.kv.Set(ctx, KeyEditorCode, text); err != nil {
		s.logger.Warn("persist editor code failed", "error", err, "bytes", len(text))
	}
}
