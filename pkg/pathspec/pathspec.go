// Package pathspec compiles route path templates and matches them against
// concrete locations.
//
// A template is a sequence of "/"-separated segments. A segment starting with
// ":" captures the corresponding location segment under that name:
//
//	spec, err := pathspec.Compile("family/:fid")
//	res, ok := spec.MatchSegments([]string{"family", "f2", "person"})
//	// res.Params["fid"] == "f2", res.Rest == []string{"person"}
//
// Matching is a prefix match so that nested routes can consume the remainder.
// Literal segments compare case-insensitively; captured values are
// percent-decoded and round-trip encoded slashes and spaces exactly.
package pathspec

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Template compilation errors.
var (
	ErrEmptyPattern   = errors.New("pathspec: empty pattern")
	ErrDuplicateParam = errors.New("pathspec: duplicate parameter name")
)

// segment is one compiled template segment.
type segment struct {
	literal string // template text, used for literal comparison and casing
	param   string // capture name, empty for literal segments
}

// Spec is a compiled path template.
type Spec struct {
	pattern  string
	rooted   bool
	segments []segment
	params   []string
}

// Result holds the outcome of matching a Spec against location segments.
type Result struct {
	// Params maps capture names to percent-decoded values.
	Params map[string]string

	// Encoded maps capture names to the raw (still encoded) segment text.
	Encoded map[string]string

	// Consumed are the matched segments: template casing for literals, the
	// caller's raw text for captures.
	Consumed []string

	// Rest are the location segments left unmatched.
	Rest []string
}

// Compile parses a path template.
// Duplicate capture names and empty patterns are construction-time errors.
func Compile(pattern string) (*Spec, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}

	s := &Spec{
		pattern: pattern,
		rooted:  strings.HasPrefix(pattern, "/"),
	}

	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		// Pattern "/" has no segments; it matches any location as a prefix.
		return s, nil
	}

	seen := make(map[string]bool)
	for _, seg := range strings.Split(trimmed, "/") {
		if strings.HasPrefix(seg, ":") {
			name := seg[1:]
			if seen[name] {
				return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateParam, name, pattern)
			}
			seen[name] = true
			s.segments = append(s.segments, segment{param: name})
			s.params = append(s.params, name)
		} else {
			s.segments = append(s.segments, segment{literal: seg})
		}
	}
	return s, nil
}

// MustCompile is like Compile but panics on error.
// Intended for templates known valid at registration time.
func MustCompile(pattern string) *Spec {
	s, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return s
}

// Pattern returns the original template text.
func (s *Spec) Pattern() string { return s.pattern }

// ParamNames returns the capture names in template order.
func (s *Spec) ParamNames() []string { return s.params }

// MatchSegments matches the template as a prefix of the given raw (still
// percent-encoded) location segments.
func (s *Spec) MatchSegments(segs []string) (*Result, bool) {
	if len(segs) < len(s.segments) {
		return nil, false
	}

	res := &Result{
		Params:  make(map[string]string),
		Encoded: make(map[string]string),
	}
	for i, tpl := range s.segments {
		raw := segs[i]
		if tpl.param != "" {
			decoded, err := url.PathUnescape(raw)
			if err != nil {
				return nil, false
			}
			res.Params[tpl.param] = decoded
			res.Encoded[tpl.param] = raw
			res.Consumed = append(res.Consumed, raw)
			continue
		}
		if !strings.EqualFold(tpl.literal, raw) {
			return nil, false
		}
		// Keep the template's casing in the matched location.
		res.Consumed = append(res.Consumed, tpl.literal)
	}
	res.Rest = segs[len(s.segments):]
	return res, true
}

// Match matches the template against a location string (path only, no query).
// It is a convenience wrapper over MatchSegments.
func (s *Spec) Match(location string) (*Result, bool) {
	return s.MatchSegments(SplitSegments(location))
}

// Location substitutes params into the template, percent-encoding each value.
// The provided parameter set must exactly equal the template's capture set.
func (s *Spec) Location(params map[string]string) (string, error) {
	for name := range params {
		found := false
		for _, p := range s.params {
			if p == name {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("pathspec: parameter %q not in pattern %q", name, s.pattern)
		}
	}

	parts := make([]string, 0, len(s.segments))
	for _, tpl := range s.segments {
		if tpl.param == "" {
			parts = append(parts, tpl.literal)
			continue
		}
		v, ok := params[tpl.param]
		if !ok {
			return "", fmt.Errorf("pathspec: missing parameter %q for pattern %q", tpl.param, s.pattern)
		}
		parts = append(parts, escapeSegment(v))
	}

	loc := strings.Join(parts, "/")
	if s.rooted {
		return "/" + loc, nil
	}
	return loc, nil
}

// escapeSegment percent-encodes a single path segment value.
// url.PathEscape encodes "/" as %2F, so a value containing a slash stays
// within one segment and round-trips through MatchSegments.
func escapeSegment(v string) string {
	return url.PathEscape(v)
}

// SplitSegments splits a location path into its raw segments.
// The root path "/" (and "") yields nil.
func SplitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// JoinSegments rebuilds a rooted location path from segments.
// Zero segments yields "/".
func JoinSegments(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}

// Canonicalize splits a location into path, query and fragment, stripping a
// single trailing "/" from the path (except when the path is exactly "/").
// Query and fragment are preserved verbatim.
func Canonicalize(location string) (path, query, fragment string) {
	path, fragment, _ = strings.Cut(location, "#")
	path, query, _ = strings.Cut(path, "?")

	if path == "" {
		path = "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path, query, fragment
}

// JoinLocation reassembles a location from its canonicalized parts.
func JoinLocation(path, query, fragment string) string {
	var b strings.Builder
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	if fragment != "" {
		b.WriteString("#")
		b.WriteString(fragment)
	}
	return b.String()
}
