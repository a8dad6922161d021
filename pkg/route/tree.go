package route

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vango-dev/navstack/pkg/pathspec"
)

// Tree construction and lookup errors.
var (
	ErrEmptyPath     = errors.New("route: empty path")
	ErrEmptyName     = errors.New("route: empty name")
	ErrBadPath       = errors.New("route: invalid path shape")
	ErrDuplicateName = errors.New("route: duplicate route name")
	ErrNoBranches    = errors.New("route: stateful shell requires at least one branch")
	ErrUnknownName   = errors.New("route: no route with name")
)

// branchRef identifies the nearest enclosing stateful-shell branch.
type branchRef struct {
	shell *StatefulShell
	index int
}

// Tree is a validated, immutable route tree.
type Tree struct {
	routes []Route

	names     map[string]*Leaf
	parents   map[Route]Route
	patterns  map[Route]string
	specs     map[*Leaf]*pathspec.Spec
	fullSpecs map[*Leaf]*pathspec.Spec
	branches  map[Route]branchRef
}

// NewTree validates the route definitions and builds the lookup indexes.
// Validation failures (empty or malformed paths, duplicate names, duplicate
// path parameters, branchless stateful shells) are construction-time errors;
// the host should fail fast at startup rather than keep an unusable tree.
func NewTree(routes []Route) (*Tree, error) {
	if len(routes) == 0 {
		return nil, errors.New("route: tree requires at least one route")
	}

	t := &Tree{
		routes:    routes,
		names:     make(map[string]*Leaf),
		parents:   make(map[Route]Route),
		patterns:  make(map[Route]string),
		specs:     make(map[*Leaf]*pathspec.Spec),
		fullSpecs: make(map[*Leaf]*pathspec.Spec),
		branches:  make(map[Route]branchRef),
	}

	for _, r := range routes {
		if err := t.register(r, nil, "", false, branchRef{}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTree is like NewTree but panics on error.
// Intended for trees declared as program constants.
func MustTree(routes []Route) *Tree {
	t, err := NewTree(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// register validates one route and recurses into its children.
// parentPattern is the full pattern path matched so far; underLeaf reports
// whether any ancestor is a Leaf (which makes this leaf's path relative).
func (t *Tree) register(r Route, parent Route, parentPattern string, underLeaf bool, br branchRef) error {
	if parent != nil {
		t.parents[r] = parent
	}
	if br.shell != nil {
		t.branches[r] = br
	}

	switch r := r.(type) {
	case *Leaf:
		if r.Path == "" {
			return ErrEmptyPath
		}
		if underLeaf {
			if strings.HasPrefix(r.Path, "/") || strings.HasSuffix(r.Path, "/") {
				return fmt.Errorf("%w: sub-route path %q must not start or end with \"/\"", ErrBadPath, r.Path)
			}
		} else if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("%w: root path %q must start with \"/\"", ErrBadPath, r.Path)
		}

		if r.Name != "" {
			if _, dup := t.names[r.Name]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateName, r.Name)
			}
			t.names[r.Name] = r
		}

		spec, err := pathspec.Compile(r.Path)
		if err != nil {
			return err
		}
		t.specs[r] = spec

		full := JoinPaths(parentPattern, r.Path)
		t.patterns[r] = full
		fullSpec, err := pathspec.Compile(full)
		if err != nil {
			// Duplicate parameter across ancestor and child templates.
			return err
		}
		t.fullSpecs[r] = fullSpec

		for _, c := range r.Children {
			if err := t.register(c, r, full, true, br); err != nil {
				return err
			}
		}

	case *Shell:
		t.patterns[r] = parentPattern
		for _, c := range r.Children {
			if err := t.register(c, r, parentPattern, underLeaf, br); err != nil {
				return err
			}
		}

	case *StatefulShell:
		if len(r.Branches) == 0 {
			return ErrNoBranches
		}
		t.patterns[r] = parentPattern
		for i, b := range r.Branches {
			for _, c := range b.Routes {
				if err := t.register(c, r, parentPattern, underLeaf, branchRef{shell: r, index: i}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Routes returns the top-level route definitions.
func (t *Tree) Routes() []Route { return t.routes }

// Spec returns a leaf's compiled own-path template.
func (t *Tree) Spec(l *Leaf) *pathspec.Spec { return t.specs[l] }

// FullPattern returns a route's full pattern path from the root.
// Shell variants share their parent's pattern ("" at the top level).
func (t *Tree) FullPattern(r Route) string { return t.patterns[r] }

// Parent returns a route's parent, nil for top-level routes.
func (t *Tree) Parent(r Route) Route { return t.parents[r] }

// IsAncestor reports whether anc is a strict ancestor of desc.
func (t *Tree) IsAncestor(anc, desc Route) bool {
	for p := t.parents[desc]; p != nil; p = t.parents[p] {
		if p == anc {
			return true
		}
	}
	return false
}

// RouteByName returns the leaf registered under name.
func (t *Tree) RouteByName(name string) (*Leaf, bool) {
	l, ok := t.names[name]
	return l, ok
}

// LocationForName resolves a route name to a concrete location, substituting
// params into the full pattern and appending query parameters. The provided
// params must exactly match the pattern's required names.
func (t *Tree) LocationForName(name string, params map[string]string, query url.Values) (string, error) {
	l, ok := t.names[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownName, name)
	}

	loc, err := t.fullSpecs[l].Location(params)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		loc += "?" + query.Encode()
	}
	return loc, nil
}

// BranchIndexOf returns the nearest enclosing stateful shell and branch
// index containing r, if any.
func (t *Tree) BranchIndexOf(r Route) (*StatefulShell, int, bool) {
	ref, ok := t.branches[r]
	if !ok {
		return nil, 0, false
	}
	return ref.shell, ref.index, true
}

// DefaultLocation returns a branch's initial location: the explicit default,
// or the full pattern path of the branch's first leaf descendant.
func (t *Tree) DefaultLocation(b *Branch) string {
	if b.Default != "" {
		return b.Default
	}
	if l := firstLeaf(b.Routes); l != nil {
		return t.patterns[l]
	}
	return ""
}

// ScopeFor resolves the navigation scope a route renders onto: an explicit
// leaf scope, else the nearest enclosing shell's (or branch's) scope, else
// the zero ScopeID meaning the root scope.
func (t *Tree) ScopeFor(r Route) ScopeID {
	if l, ok := r.(*Leaf); ok && l.Scope != "" {
		return l.Scope
	}
	for p := r; p != nil; p = t.parents[p] {
		switch p := p.(type) {
		case *Shell:
			if p != r {
				return p.Scope
			}
		case *StatefulShell:
			if p != r {
				if ref, ok := t.branches[r]; ok && ref.shell == p {
					return p.Branches[ref.index].Scope
				}
				// r sits above the branches of a descendant shell; keep walking.
			}
		}
	}
	return ""
}

// firstLeaf finds the first leaf route in declaration order, depth-first.
func firstLeaf(routes []Route) *Leaf {
	for _, r := range routes {
		if l, ok := r.(*Leaf); ok {
			return l
		}
		if l := firstLeaf(ChildrenOf(r)); l != nil {
			return l
		}
	}
	return nil
}

// JoinPaths concatenates a parent pattern and a child template.
func JoinPaths(parent, child string) string {
	if parent == "" {
		return child
	}
	if strings.HasPrefix(child, "/") {
		child = child[1:]
	}
	if parent == "/" {
		return "/" + child
	}
	return parent + "/" + child
}
