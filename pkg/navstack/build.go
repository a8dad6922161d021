package navstack

import (
	"github.com/vango-dev/navstack/pkg/match"
	"github.com/vango-dev/navstack/pkg/route"
	"github.com/vango-dev/navstack/pkg/shell"
)

// ScreenBuilder produces the host's view value for the topmost match of a
// list. The list is passed alongside for access to query, extra and error
// state.
type ScreenBuilder func(m *match.Match, l *match.List) any

// ShellBuilder wraps child content in a shell's chrome. For a stateful
// shell st carries the branch state; for a plain Shell st is nil.
type ShellBuilder func(r route.Route, st *shell.State, child any) any

// Assemble composes the current match list into a single view value: the
// tail match becomes the screen, then each enclosing shell match wraps it
// from the inside out. Intermediate leaf matches are below the top of the
// host's stack and are not composed here.
//
// It returns nil before the first navigation.
func (n *Navigator) Assemble(screen ScreenBuilder, shells ShellBuilder) any {
	if n.cur == nil || n.cur.Len() == 0 {
		return nil
	}

	matches := n.cur.Matches()
	content := screen(n.cur.Last(), n.cur)
	if shells == nil {
		return content
	}

	for i := len(matches) - 2; i >= 0; i-- {
		switch r := matches[i].Route.(type) {
		case *route.Shell:
			content = shells(r, nil, content)
		case *route.StatefulShell:
			content = shells(r, n.shells.Get(r), content)
		}
	}
	return content
}
