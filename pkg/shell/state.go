// Package shell manages the runtime state of stateful shell routes: one
// preserved match list per branch, lazy or eager (preload) branch
// initialization, and the cross-branch push guard.
package shell

import (
	"context"
	"fmt"

	"github.com/vango-dev/navstack/pkg/match"
	"github.com/vango-dev/navstack/pkg/redirect"
	"github.com/vango-dev/navstack/pkg/route"
)

// BranchState holds one branch's last-known match list.
// A nil List means the branch has never been visited.
type BranchState struct {
	List *match.List
}

// CrossBranchError reports a push that targets a route outside the shell's
// currently active branch. It indicates host misuse of the façade and is
// raised as a panic there, never a navigable state.
type CrossBranchError struct {
	Target      string // target route's full pattern
	ActiveIndex int
}

func (e *CrossBranchError) Error() string {
	return fmt.Sprintf("navstack: cannot push %q while branch %d is active", e.Target, e.ActiveIndex)
}

// State is the runtime state of one StatefulShell instance: the active
// branch index plus each branch's visited/not-visited match list.
type State struct {
	tree     *route.Tree
	shell    *route.StatefulShell
	resolver *redirect.Resolver

	active   int
	branches []*BranchState
}

// NewState creates the runtime state for a stateful shell, all branches
// unvisited and branch 0 active.
func NewState(tree *route.Tree, sh *route.StatefulShell, resolver *redirect.Resolver) *State {
	branches := make([]*BranchState, len(sh.Branches))
	for i := range branches {
		branches[i] = &BranchState{}
	}
	return &State{tree: tree, shell: sh, resolver: resolver, branches: branches}
}

// Shell returns the route definition this state belongs to.
func (s *State) Shell() *route.StatefulShell { return s.shell }

// ActiveIndex returns the currently active branch index.
func (s *State) ActiveIndex() int { return s.active }

// Branch returns the state of branch i.
func (s *State) Branch(i int) *BranchState { return s.branches[i] }

// Visited reports whether branch i has a stored match list.
func (s *State) Visited(i int) bool { return s.branches[i].List != nil }

// Save persists list as the active branch's current match list.
// The façade calls this whenever the current list is replaced wholesale so
// the outgoing branch's stack survives the next switch.
func (s *State) Save(list *match.List) {
	s.branches[s.active].List = list
}

// SetActive records that a parsed location landed in branch i, storing the
// given list for it. Used when navigation (rather than a branch switch)
// selects the branch.
func (s *State) SetActive(i int, list *match.List) {
	s.active = i
	s.branches[i].List = list
}

// ActivateBranch switches to branch index. When the branch was visited and
// resetToDefault is false, its stored match list is restored unchanged — no
// re-matching, no rebuild of deeper pages. Otherwise the branch's default
// location is resolved through the full match+redirect pipeline.
//
// Callers persist the outgoing branch first (Save); stacks mutated in place
// are already current in their BranchState.
func (s *State) ActivateBranch(ctx context.Context, index int, resetToDefault bool) *match.List {
	if index < 0 || index >= len(s.branches) {
		panic(fmt.Sprintf("navstack: branch index %d out of range [0,%d)", index, len(s.branches)))
	}

	if b := s.branches[index]; !resetToDefault && b.List != nil {
		s.active = index
		return b.List
	}

	list := s.resolveDefault(ctx, s.shell.Branches[index])
	s.branches[index].List = list
	s.active = index
	return list
}

// Reset clears every branch back to "not visited" and activates branch 0 at
// its default location. Used to return the shell to its initial state.
func (s *State) Reset(ctx context.Context) *match.List {
	for _, b := range s.branches {
		b.List = nil
	}
	return s.ActivateBranch(ctx, 0, true)
}

// Preload eagerly resolves every unvisited branch to its default location
// when the shell is configured for it, so branch content can be instantiated
// before first selection. Nested stateful shells reached by a preloaded list
// are preloaded recursively through the store.
func (s *State) Preload(ctx context.Context, store *Store) {
	if !s.shell.Preload {
		return
	}
	for i, b := range s.shell.Branches {
		if s.branches[i].List != nil {
			continue
		}
		list := s.resolveDefault(ctx, b)
		s.branches[i].List = list

		for _, m := range list.Matches() {
			if nested, ok := m.Route.(*route.StatefulShell); ok && nested != s.shell {
				store.Get(nested).Preload(ctx, store)
			}
		}
	}
}

// CheckPush enforces the cross-branch push guard: while a branch is active,
// a pushed route must be a descendant of that branch. Routes outside the
// shell are allowed only when they target the root navigation scope.
func (s *State) CheckPush(target route.Route, rootScope route.ScopeID) error {
	if idx, ok := s.branchWithin(target); ok {
		if idx != s.active {
			return &CrossBranchError{Target: s.tree.FullPattern(target), ActiveIndex: s.active}
		}
		return nil
	}

	if scope := s.tree.ScopeFor(target); scope != "" && scope != rootScope {
		return &CrossBranchError{Target: s.tree.FullPattern(target), ActiveIndex: s.active}
	}
	return nil
}

// branchWithin finds the branch index of r relative to this shell
// specifically, seeing through nested shells.
func (s *State) branchWithin(r route.Route) (int, bool) {
	return BranchIndexWithin(s.tree, s.shell, r)
}

// BranchIndexWithin finds which branch of sh contains r, walking r's
// ancestor chain until it reaches a route registered in one of sh's
// branches. It sees through shells nested inside a branch.
func BranchIndexWithin(t *route.Tree, sh *route.StatefulShell, r route.Route) (int, bool) {
	for cur := r; cur != nil; cur = t.Parent(cur) {
		if owner, idx, ok := t.BranchIndexOf(cur); ok && owner == sh {
			return idx, true
		}
	}
	return 0, false
}

// resolveDefault runs the full pipeline on a branch's default location.
func (s *State) resolveDefault(ctx context.Context, b *route.Branch) *match.List {
	loc := s.tree.DefaultLocation(b)
	list, err := match.Find(s.tree, loc, nil)
	if err != nil {
		return match.NewErrorList(loc, err)
	}
	return s.resolver.Resolve(ctx, list)
}

// Store lazily creates and caches the runtime state of every stateful shell
// in a tree. It is owned by the façade and passed explicitly where needed.
type Store struct {
	tree     *route.Tree
	resolver *redirect.Resolver
	states   map[*route.StatefulShell]*State
}

// NewStore creates an empty store over the given tree and resolver.
func NewStore(tree *route.Tree, resolver *redirect.Resolver) *Store {
	return &Store{
		tree:     tree,
		resolver: resolver,
		states:   make(map[*route.StatefulShell]*State),
	}
}

// Get returns the runtime state for sh, creating it on first use.
func (st *Store) Get(sh *route.StatefulShell) *State {
	if s, ok := st.states[sh]; ok {
		return s
	}
	s := NewState(st.tree, sh, st.resolver)
	st.states[sh] = s
	return s
}

// Has reports whether sh already has runtime state.
func (st *Store) Has(sh *route.StatefulShell) bool {
	_, ok := st.states[sh]
	return ok
}
