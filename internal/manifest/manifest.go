// Package manifest loads declarative route trees from TOML files, for the
// navstack CLI and for hosts that prefer configuration over code.
package manifest

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/vango-dev/navstack/pkg/route"
)

// Manifest is the top-level TOML document.
type Manifest struct {
	// RedirectLimit overrides the default redirect iteration bound.
	RedirectLimit int `toml:"redirect_limit"`

	Routes []Route `toml:"routes"`
}

// Route is one route definition. Branches makes it a stateful shell, Shell
// makes it a plain shell wrapping Children, otherwise it is a leaf route.
type Route struct {
	Path       string   `toml:"path"`
	Name       string   `toml:"name"`
	RedirectTo string   `toml:"redirect_to"`
	Scope      string   `toml:"scope"`
	Shell      bool     `toml:"shell"`
	Children   []Route  `toml:"children"`
	Branches   []Branch `toml:"branches"`
}

// Branch is one stateful-shell branch.
type Branch struct {
	Default string  `toml:"default"`
	Scope   string  `toml:"scope"`
	Routes  []Route `toml:"routes"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// Parse parses manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// Build converts the manifest into route definitions. Structural validation
// happens when the caller builds the tree.
func (m *Manifest) Build() []route.Route {
	return buildRoutes(m.Routes)
}

func buildRoutes(rs []Route) []route.Route {
	out := make([]route.Route, 0, len(rs))
	for _, r := range rs {
		out = append(out, buildRoute(r))
	}
	return out
}

func buildRoute(r Route) route.Route {
	switch {
	case len(r.Branches) > 0:
		sh := &route.StatefulShell{Redirect: staticRedirect(r.RedirectTo)}
		for _, b := range r.Branches {
			sh.Branches = append(sh.Branches, &route.Branch{
				Default: b.Default,
				Scope:   route.ScopeIDFrom(b.Scope),
				Routes:  buildRoutes(b.Routes),
			})
		}
		return sh

	case r.Shell:
		return &route.Shell{
			Scope:    route.ScopeIDFrom(r.Scope),
			Redirect: staticRedirect(r.RedirectTo),
			Children: buildRoutes(r.Children),
		}

	default:
		return &route.Leaf{
			Path:     r.Path,
			Name:     r.Name,
			Scope:    route.ScopeIDFrom(r.Scope),
			Redirect: staticRedirect(r.RedirectTo),
			Children: buildRoutes(r.Children),
		}
	}
}

// staticRedirect builds an unconditional redirect, nil when target is empty
// so redirect-free routes stay redirect-free.
func staticRedirect(target string) route.RedirectFunc {
	if target == "" {
		return nil
	}
	return func(ctx context.Context, s route.RedirectState) (string, error) {
		return target, nil
	}
}
