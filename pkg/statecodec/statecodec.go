// Package statecodec serializes navigation state for process restarts and
// host-side state restoration: the current location, the imperatively pushed
// entries on top of it, and each stateful shell's last active branch, in a
// compact version-prefixed msgpack encoding.
package statecodec

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vango-dev/navstack/pkg/navstack"
	"github.com/vango-dev/navstack/pkg/route"
)

// Version is the snapshot wire format version. Encoded as a single prefix
// byte so incompatible snapshots fail fast instead of half-restoring.
const Version = 1

// ErrEmptySnapshot reports a zero-length snapshot payload.
var ErrEmptySnapshot = errors.New("statecodec: empty snapshot")

// VersionError reports a snapshot written by an incompatible format version.
type VersionError struct {
	Got int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("statecodec: unsupported snapshot version %d (want %d)", e.Got, Version)
}

// PushedEntry records one imperatively pushed stack entry.
// Key is informational; replaying the pushes in order regenerates the same
// keys deterministically.
type PushedEntry struct {
	Location string `msgpack:"loc"`
	Key      string `msgpack:"key"`
}

// Snapshot is a serializable capture of a navigator's state. Extra payloads
// and live scope handles are process-local and deliberately not captured.
type Snapshot struct {
	// Location is the matched base location, before imperative pushes.
	Location string `msgpack:"loc"`

	// Pushed are the imperative entries on top of the base, root first.
	Pushed []PushedEntry `msgpack:"pushed,omitempty"`

	// Branches maps a stateful shell's tree ordinal (depth-first
	// declaration order) to its last active branch index.
	Branches map[int]int `msgpack:"branches,omitempty"`
}

// Capture snapshots a navigator's current state. It returns nil before the
// first navigation.
func Capture(nav *navstack.Navigator) *Snapshot {
	cur := nav.Current()
	if cur == nil || cur.Len() == 0 {
		return nil
	}

	s := &Snapshot{Location: cur.URI()}
	for _, m := range cur.Matches() {
		if m.Pushed == nil {
			continue
		}
		s.Pushed = append(s.Pushed, PushedEntry{
			Location: m.Pushed.Location(),
			Key:      m.Key,
		})
	}

	store := nav.Shells()
	for ord, sh := range shellOrdinals(nav.Tree()) {
		if !store.Has(sh) {
			continue
		}
		if s.Branches == nil {
			s.Branches = make(map[int]int)
		}
		s.Branches[ord] = store.Get(sh).ActiveIndex()
	}
	return s
}

// Apply replays a snapshot onto a navigator: stored branch actives first (so
// shells off the restored path keep their selection), then the base
// location, then the imperative pushes in order.
func (s *Snapshot) Apply(ctx context.Context, nav *navstack.Navigator) {
	shells := shellOrdinals(nav.Tree())
	for ord, idx := range s.Branches {
		if ord >= len(shells) {
			continue
		}
		sh := shells[ord]
		if idx < 0 || idx >= len(sh.Branches) {
			continue
		}
		nav.ShellState(sh).ActivateBranch(ctx, idx, false)
	}

	nav.Go(ctx, s.Location)
	for _, e := range s.Pushed {
		nav.Push(ctx, e.Location)
	}
}

// Encode serializes a snapshot with its version prefix.
func Encode(s *Snapshot) ([]byte, error) {
	body, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("statecodec: encode: %w", err)
	}
	return append([]byte{Version}, body...), nil
}

// Decode deserializes a version-prefixed snapshot.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrEmptySnapshot
	}
	if data[0] != Version {
		return nil, &VersionError{Got: int(data[0])}
	}

	var s Snapshot
	if err := msgpack.Unmarshal(data[1:], &s); err != nil {
		return nil, fmt.Errorf("statecodec: decode: %w", err)
	}
	return &s, nil
}

// shellOrdinals assigns every stateful shell a stable ordinal by depth-first
// declaration order, so snapshots survive restarts without route identity.
func shellOrdinals(t *route.Tree) []*route.StatefulShell {
	var shells []*route.StatefulShell
	var walk func(routes []route.Route)
	walk = func(routes []route.Route) {
		for _, r := range routes {
			if sh, ok := r.(*route.StatefulShell); ok {
				shells = append(shells, sh)
			}
			walk(route.ChildrenOf(r))
		}
	}
	walk(t.Routes())
	return shells
}
