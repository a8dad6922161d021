package navstack

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/navstack/pkg/match"
	"github.com/vango-dev/navstack/pkg/route"
	"github.com/vango-dev/navstack/pkg/shell"
)

type fakeHandle struct {
	can    bool
	popped int
}

func (f *fakeHandle) CanPop() bool { return f.can }
func (f *fakeHandle) Pop() bool    { f.popped++; return true }

// appRoutes is the nested tree used across the façade tests.
func appRoutes() []route.Route {
	return []route.Route{
		&route.Leaf{Path: "/", Name: "home", Children: []route.Route{
			&route.Leaf{Path: "family/:fid", Name: "family", Children: []route.Route{
				&route.Leaf{Path: "person/:pid", Name: "person"},
			}},
		}},
	}
}

func newNav(t *testing.T, cfg Config) *Navigator {
	t.Helper()
	nav, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return nav
}

func TestGoResolvesLocation(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})

	events := 0
	nav.AddListener(func(*match.List) { events++ })

	nav.Go(context.Background(), "/family/f2")

	if got := nav.Location(); got != "/family/f2" {
		t.Errorf("Location = %q, want %q", got, "/family/f2")
	}
	if got := nav.Current().Len(); got != 2 {
		t.Errorf("Len = %d, want 2 (root + family)", got)
	}
	if events != 1 {
		t.Errorf("listener fired %d times, want 1", events)
	}
	if got := nav.Current().Last().Params["fid"]; got != "f2" {
		t.Errorf("fid = %q, want %q", got, "f2")
	}
}

func TestGoUnknownLocationYieldsErrorList(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})

	nav.Go(context.Background(), "/nope")

	cur := nav.Current()
	if !cur.IsError() {
		t.Fatal("unknown location must resolve to an error list")
	}
	var nm *match.NoMatchError
	if !errors.As(cur.Err(), &nm) {
		t.Fatalf("Err = %v, want *NoMatchError", cur.Err())
	}
	if nm.Location != "/nope" {
		t.Errorf("Location = %q, want %q", nm.Location, "/nope")
	}
}

func TestGoFollowsRedirects(t *testing.T) {
	nav := newNav(t, Config{Routes: []route.Route{
		&route.Leaf{Path: "/old", Redirect: func(ctx context.Context, s route.RedirectState) (string, error) {
			return "/new", nil
		}},
		&route.Leaf{Path: "/new"},
	}})

	events := 0
	nav.AddListener(func(*match.List) { events++ })

	nav.Go(context.Background(), "/old")

	if got := nav.Location(); got != "/new" {
		t.Errorf("Location = %q, want %q", got, "/new")
	}
	// Redirect iterations are internal: one navigation, one event.
	if events != 1 {
		t.Errorf("listener fired %d times, want 1", events)
	}
}

func TestGoNamed(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})

	nav.GoNamed(context.Background(), "person", map[string]string{"fid": "f1", "pid": "p2"})

	if got := nav.Location(); got != "/family/f1/person/p2" {
		t.Errorf("Location = %q, want %q", got, "/family/f1/person/p2")
	}
}

func TestGoNamedUnknownNamePanics(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})

	defer func() {
		if recover() == nil {
			t.Error("unknown route name must panic")
		}
	}()
	nav.GoNamed(context.Background(), "missing", nil)
}

func TestPushAssignsFreshKeys(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})
	ctx := context.Background()

	nav.Go(ctx, "/family/f2")
	nav.Push(ctx, "/family/f3")
	nav.Push(ctx, "/family/f4")

	cur := nav.Current()
	if got := cur.Len(); got != 4 {
		t.Fatalf("Len = %d, want 4", got)
	}
	ms := cur.Matches()
	if got := ms[2].Key; got != "/family/:fid-p1" {
		t.Errorf("first push Key = %q, want %q", got, "/family/:fid-p1")
	}
	if got := ms[3].Key; got != "/family/:fid-p2" {
		t.Errorf("second push Key = %q, want %q", got, "/family/:fid-p2")
	}
	if got := cur.Location(); got != "/family/f4" {
		t.Errorf("Location = %q, want pushed tail %q", got, "/family/f4")
	}
}

func TestPushedEntryCarriesResolvedList(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})
	ctx := context.Background()

	nav.Go(ctx, "/family/f2")
	nav.PushNamed(ctx, "person", map[string]string{"fid": "f2", "pid": "p9"})

	tail := nav.Current().Last()
	if tail.Pushed == nil {
		t.Fatal("imperative push must carry its resolved sub-list")
	}
	if got := tail.Pushed.Location(); got != "/family/f2/person/p9" {
		t.Errorf("Pushed Location = %q, want %q", got, "/family/f2/person/p9")
	}
	if got := tail.Params["pid"]; got != "p9" {
		t.Errorf("pid = %q, want %q", got, "p9")
	}
}

func TestReplacePreservesDepthAndKey(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})
	ctx := context.Background()

	nav.Go(ctx, "/family/f2")
	nav.Push(ctx, "/family/f3")

	nav.Replace(ctx, "/family/f9")

	cur := nav.Current()
	if got := cur.Len(); got != 3 {
		t.Errorf("Len = %d, want 3 (replace keeps depth)", got)
	}
	if got := cur.Location(); got != "/family/f9" {
		t.Errorf("Location = %q, want %q", got, "/family/f9")
	}
	if got := cur.Last().Key; got != "/family/:fid-p1" {
		t.Errorf("Key = %q, want inherited %q", got, "/family/:fid-p1")
	}
}

func TestPopCoreStack(t *testing.T) {
	nav := newNav(t, Config{Routes: appRoutes()})
	ctx := context.Background()

	nav.Go(ctx, "/family/f2")
	nav.Push(ctx, "/family/f3")

	events := 0
	nav.AddListener(func(*match.List) { events++ })

	if !nav.Pop() {
		t.Fatal("Pop should succeed with a pushed entry on the stack")
	}
	if got := nav.Location(); got != "/family/f2" {
		t.Errorf("Location = %q, want %q", got, "/family/f2")
	}
	if events != 1 {
		t.Errorf("listener fired %d times, want 1", events)
	}
}

func TestPopDelegatesToNearestScope(t *testing.T) {
	modal := route.ScopeIDFrom("modal")
	reg := route.NewScopeRegistry()
	h := &fakeHandle{can: true}
	reg.Register(modal, h)

	nav := newNav(t, Config{
		Routes: []route.Route{&route.Leaf{Path: "/stack", Scope: modal}},
		Scopes: reg,
	})
	ctx := context.Background()
	nav.Go(ctx, "/stack")

	events := 0
	nav.AddListener(func(*match.List) { events++ })

	if !nav.CanPop() {
		t.Error("CanPop should see the scope's poppable stack")
	}
	if !nav.Pop() {
		t.Fatal("Pop should delegate to the registered scope")
	}
	if h.popped != 1 {
		t.Errorf("handle popped %d times, want 1", h.popped)
	}
	if got := nav.Current().Len(); got != 1 {
		t.Errorf("core Len = %d, want 1 (untouched by delegated pop)", got)
	}
	// The host's own navigator changed, not the core list: no event.
	if events != 0 {
		t.Errorf("listener fired %d times, want 0", events)
	}
}

func TestPopFallsBackToOnExit(t *testing.T) {
	exits := 0
	nav := newNav(t, Config{
		Routes: []route.Route{&route.Leaf{Path: "/only"}},
		OnExit: func() { exits++ },
	})
	nav.Go(context.Background(), "/only")

	if nav.CanPop() {
		t.Error("nothing should be poppable")
	}
	if nav.Pop() {
		t.Error("Pop must report false when nothing can pop")
	}
	if exits != 1 {
		t.Errorf("OnExit called %d times, want 1", exits)
	}
}

func TestPushAcrossBranchesPanics(t *testing.T) {
	sh := &route.StatefulShell{
		Branches: []*route.Branch{
			{Routes: []route.Route{&route.Leaf{Path: "/c", Children: []route.Route{&route.Leaf{Path: "c1"}}}}},
			{Routes: []route.Route{&route.Leaf{Path: "/d", Children: []route.Route{&route.Leaf{Path: "d1"}}}}},
		},
	}
	nav := newNav(t, Config{Routes: []route.Route{sh}})
	ctx := context.Background()

	nav.Go(ctx, "/c/c1")

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("cross-branch push must panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		var cbe *shell.CrossBranchError
		if !errors.As(err, &cbe) {
			t.Fatalf("panic = %v, want *CrossBranchError", err)
		}
	}()
	nav.Push(ctx, "/d/d1")
}

func TestSwitchBranchPreservesStacks(t *testing.T) {
	sh := &route.StatefulShell{
		Branches: []*route.Branch{
			{Routes: []route.Route{&route.Leaf{
				Path:     "/a",
				Children: []route.Route{&route.Leaf{Path: "detailA"}},
			}}},
			{Routes: []route.Route{&route.Leaf{Path: "/b"}}},
		},
	}
	nav := newNav(t, Config{Routes: []route.Route{sh}})
	ctx := context.Background()

	nav.Go(ctx, "/a/detailA")

	nav.SwitchBranch(ctx, sh, 1, false)
	if got := nav.Location(); got != "/b" {
		t.Fatalf("Location = %q, want branch default %q", got, "/b")
	}

	nav.SwitchBranch(ctx, sh, 0, false)
	if got := nav.Location(); got != "/a/detailA" {
		t.Errorf("Location = %q, want restored %q", got, "/a/detailA")
	}

	nav.ResetShell(ctx, sh)
	if got := nav.Location(); got != "/a" {
		t.Errorf("Location after reset = %q, want %q", got, "/a")
	}
	if nav.ShellState(sh).Visited(1) {
		t.Error("reset must clear branch 1")
	}
}

func TestGoIntoShellSetsActiveBranch(t *testing.T) {
	sh := &route.StatefulShell{
		Branches: []*route.Branch{
			{Routes: []route.Route{&route.Leaf{Path: "/a"}}},
			{Routes: []route.Route{&route.Leaf{Path: "/b"}}},
		},
	}
	nav := newNav(t, Config{Routes: []route.Route{sh}})

	nav.Go(context.Background(), "/b")

	if got := nav.ShellState(sh).ActiveIndex(); got != 1 {
		t.Errorf("ActiveIndex = %d, want 1", got)
	}
}

func TestAssembleWrapsShellChrome(t *testing.T) {
	nav := newNav(t, Config{Routes: []route.Route{
		&route.Shell{Children: []route.Route{&route.Leaf{Path: "/s"}}},
	}})
	nav.Go(context.Background(), "/s")

	out := nav.Assemble(
		func(m *match.Match, l *match.List) any { return "screen:" + m.Location },
		func(r route.Route, st *shell.State, child any) any { return "[" + child.(string) + "]" },
	)
	if out != "[screen:/s]" {
		t.Errorf("Assemble = %v, want %q", out, "[screen:/s]")
	}
}
