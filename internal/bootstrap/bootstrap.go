// Package bootstrap decides the initial editor text and runner set of a
// playground session: a shared-session payload when one was supplied,
// otherwise whatever the selection store holds.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/store"
)

// Payload is a read-only shared session.
type Payload struct {
	Code    string   `json:"code"`
	Runners []string `json:"runners"`
}

// State is the resolved starting point of a session.
type State struct {
	Code    string
	Runners runner.Set
	// Shared is true when State came from a Payload.
	Shared bool
}

// Resolve returns the session's initial state. A non-nil payload is used
// verbatim and the store is not read. It is called once, before any pane
// exists.
func Resolve(ctx context.Context, payload *Payload, sel *store.Selection) State {
	if payload != nil {
		set := make(runner.Set, len(payload.Runners))
		for i, r := range payload.Runners {
			set[i] = runner.ID(r)
		}
		return State{Code: payload.Code, Runners: set, Shared: true}
	}
	return State{
		Code:    sel.LoadCode(ctx),
		Runners: sel.LoadRunnerSet(ctx),
	}
}

// Decode parses a JSON payload of the form {"code": "...", "runners": [...]}.
func Decode(r io.Reader) (*Payload, error) {
	var raw struct {
		Code    *string         `json:"code"`
		Runners json.RawMessage `json:"runners"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("session is not valid JSON: %v", err))
	}
	if raw.Code == nil {
		return nil, errors.NewValidationError("session is missing `code`.").WithField("code")
	}
	if len(raw.Runners) == 0 {
		return nil, errors.NewValidationError("session is missing `runners`.").WithField("runners")
	}
	var runners []string
	if err := json.Unmarshal(raw.Runners, &runners); err != nil {
		return nil, errors.NewValidationError("`runners` is not a list of runners.").WithField("runners")
	}
	return &Payload{Code: *raw.Code, Runners: runners}, nil
}

// LoadFile reads a payload from a JSON file.
func LoadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "session file %s", path)
	}
	return p, nil
}
