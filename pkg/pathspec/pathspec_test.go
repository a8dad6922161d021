package pathspec

import (
	"errors"
	"testing"
)

func TestCompileCollectsParams(t *testing.T) {
	s, err := Compile("family/:fid/person/:pid")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got := s.ParamNames()
	want := []string{"fid", "pid"}
	if len(got) != len(want) {
		t.Fatalf("ParamNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParamNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCompileDuplicateParam(t *testing.T) {
	_, err := Compile("a/:id/b/:id")
	if !errors.Is(err, ErrDuplicateParam) {
		t.Fatalf("err = %v, want ErrDuplicateParam", err)
	}
}

func TestCompileEmptyPattern(t *testing.T) {
	_, err := Compile("")
	if !errors.Is(err, ErrEmptyPattern) {
		t.Fatalf("err = %v, want ErrEmptyPattern", err)
	}
}

func TestMatchPrefix(t *testing.T) {
	s := MustCompile("family/:fid")

	res, ok := s.Match("/family/f2/person/p1")
	if !ok {
		t.Fatal("expected match")
	}
	if res.Params["fid"] != "f2" {
		t.Errorf("Params[fid] = %q, want %q", res.Params["fid"], "f2")
	}
	if len(res.Rest) != 2 || res.Rest[0] != "person" || res.Rest[1] != "p1" {
		t.Errorf("Rest = %v, want [person p1]", res.Rest)
	}
}

func TestMatchCaseInsensitiveKeepsTemplateCasing(t *testing.T) {
	s := MustCompile("Settings/profile")

	res, ok := s.Match("/settings/PROFILE")
	if !ok {
		t.Fatal("expected case-insensitive match")
	}
	if got := JoinSegments(res.Consumed); got != "/Settings/profile" {
		t.Errorf("matched location = %q, want template casing %q", got, "/Settings/profile")
	}
}

func TestMatchNoMatch(t *testing.T) {
	s := MustCompile("family/:fid")

	if _, ok := s.Match("/person/p1"); ok {
		t.Error("should not match /person/p1")
	}
	if _, ok := s.Match("/"); ok {
		t.Error("should not match / (too few segments)")
	}
}

func TestMatchRootPattern(t *testing.T) {
	s := MustCompile("/")

	res, ok := s.Match("/")
	if !ok {
		t.Fatal("expected match for /")
	}
	if len(res.Consumed) != 0 || len(res.Rest) != 0 {
		t.Errorf("Consumed = %v, Rest = %v, want both empty", res.Consumed, res.Rest)
	}

	res, ok = s.Match("/family")
	if !ok {
		t.Fatal("expected prefix match for /family")
	}
	if len(res.Rest) != 1 || res.Rest[0] != "family" {
		t.Errorf("Rest = %v, want [family]", res.Rest)
	}
}

func TestParamDecodingRoundTrip(t *testing.T) {
	s := MustCompile("p/:param")
	value := "param w/ spaces and slashes"

	loc, err := s.Location(map[string]string{"param": value})
	if err != nil {
		t.Fatalf("Location: %v", err)
	}

	res, ok := s.Match("/" + loc)
	if !ok {
		t.Fatalf("expected match for %q", loc)
	}
	if res.Params["param"] != value {
		t.Errorf("decoded = %q, want %q", res.Params["param"], value)
	}
	if res.Encoded["param"] == value {
		t.Error("encoded view should differ from the decoded value")
	}
}

func TestLocationParamSetMustBeExact(t *testing.T) {
	s := MustCompile("/family/:fid")

	if _, err := s.Location(map[string]string{}); err == nil {
		t.Error("expected error for missing parameter")
	}
	if _, err := s.Location(map[string]string{"fid": "f1", "extra": "x"}); err == nil {
		t.Error("expected error for extraneous parameter")
	}

	loc, err := s.Location(map[string]string{"fid": "f1"})
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc != "/family/f1" {
		t.Errorf("Location = %q, want %q", loc, "/family/f1")
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in       string
		path     string
		query    string
		fragment string
	}{
		{"/a/b/", "/a/b", "", ""},
		{"/", "/", "", ""},
		{"", "/", "", ""},
		{"/a?x=1&x=2", "/a", "x=1&x=2", ""},
		{"/a/?x=1#frag", "/a", "x=1", "frag"},
		{"/a#frag", "/a", "", "frag"},
	}

	for _, tt := range tests {
		path, query, fragment := Canonicalize(tt.in)
		if path != tt.path || query != tt.query || fragment != tt.fragment {
			t.Errorf("Canonicalize(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.in, path, query, fragment, tt.path, tt.query, tt.fragment)
		}
	}
}
