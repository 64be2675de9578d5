// Package externtype holds the table of schema types that are supplied by the
// caller instead of generated.
//
// Each entry maps a fully-qualified schema path to a Go target. An entry can
// name a single type, in which case its target is a Go type such as
// "int32", "[]byte", or "example.com/money.Amount". An entry can also name a
// package or any other dotted prefix, in which case its target is the Go
// import path under which the types in that prefix already live.
//
// Lookups pick the most specific matching entry. The table is small and is
// only consulted while generating code, so it is a sorted slice that is
// scanned linearly.
package externtype

import (
	"fmt"
	"sort"
	"strings"
)

// Entry maps a schema path to a Go target.
type Entry struct {
	// Path is a fully-qualified schema name or dotted prefix. A leading dot
	// is allowed and ignored.
	Path string
	// Target is a Go type (for an exact type) or a Go import path (for a
	// prefix).
	Target string
}

// Split separates the entry's target into a Go import path and an
// identifier. Predeclared types such as "int32" and literal types such as
// "[]byte" have no import path. For a target like "example.com/pkg.Name",
// the split happens at the last dot after the last slash. If there is no
// such dot, the whole target is returned as the import path.
func (e Entry) Split() (importPath, name string) {
	return SplitTarget(e.Target)
}

// SplitTarget is like Entry.Split but operates on a bare target string.
func SplitTarget(target string) (importPath, name string) {
	if IsBuiltin(target) {
		return "", target
	}
	slash := strings.LastIndexByte(target, '/')
	dot := strings.LastIndexByte(target[slash+1:], '.')
	if dot < 0 {
		return target, ""
	}
	dot += slash + 1
	return target[:dot], target[dot+1:]
}

var builtins = map[string]struct{}{
	"bool":     {},
	"string":   {},
	"[]byte":   {},
	"int32":    {},
	"int64":    {},
	"uint32":   {},
	"uint64":   {},
	"float32":  {},
	"float64":  {},
	"struct{}": {},
}

// IsBuiltin reports whether target is a Go type that needs no import.
func IsBuiltin(target string) bool {
	_, ok := builtins[target]
	return ok
}

// Match is the result of a successful lookup.
type Match struct {
	Entry
	// Remainder is the dotted suffix of the looked-up name after the
	// entry's path. It is empty for an exact match.
	Remainder string
}

// Exact reports whether the lookup matched an entry's full path.
func (m Match) Exact() bool {
	return m.Remainder == ""
}

// WellKnown returns the default entries that map the protobuf wrapper types
// and google.protobuf.Empty onto Go types.
func WellKnown() []Entry {
	return []Entry{
		{Path: "google.protobuf.BoolValue", Target: "bool"},
		{Path: "google.protobuf.BytesValue", Target: "[]byte"},
		{Path: "google.protobuf.DoubleValue", Target: "float64"},
		{Path: "google.protobuf.Empty", Target: "struct{}"},
		{Path: "google.protobuf.FloatValue", Target: "float32"},
		{Path: "google.protobuf.Int32Value", Target: "int32"},
		{Path: "google.protobuf.Int64Value", Target: "int64"},
		{Path: "google.protobuf.StringValue", Target: "string"},
		{Path: "google.protobuf.UInt32Value", Target: "uint32"},
		{Path: "google.protobuf.UInt64Value", Target: "uint64"},
	}
}

// Table is an immutable set of entries, ordered most specific first.
type Table struct {
	entries []Entry
}

// New builds a table from the given overrides. If wellKnown is true, the
// entries from WellKnown are included too, but an override with the same
// path replaces the default. Overrides are validated and any problem is
// reported as a *ConfigError.
func New(overrides []Entry, wellKnown bool) (*Table, error) {
	byPath := map[string]Entry{}
	if wellKnown {
		for _, e := range WellKnown() {
			byPath[e.Path] = e
		}
	}
	seen := map[string]struct{}{}
	for i, e := range overrides {
		path := strings.TrimPrefix(e.Path, ".")
		if err := validate(path, e.Target); err != nil {
			return nil, &ConfigError{Index: i, Entry: e, Err: err}
		}
		if _, ok := seen[path]; ok {
			return nil, &ConfigError{Index: i, Entry: e, Err: fmt.Errorf("duplicate path %q", path)}
		}
		seen[path] = struct{}{}
		byPath[path] = Entry{Path: path, Target: e.Target}
	}

	entries := make([]Entry, 0, len(byPath))
	for _, e := range byPath {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		ni, nj := strings.Count(entries[i].Path, "."), strings.Count(entries[j].Path, ".")
		if ni != nj {
			return ni > nj
		}
		return entries[i].Path < entries[j].Path
	})
	return &Table{entries: entries}, nil
}

func validate(path, target string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	for _, seg := range strings.Split(path, ".") {
		if !isIdent(seg) {
			return fmt.Errorf("path %q has invalid segment %q", path, seg)
		}
	}
	if target == "" {
		return fmt.Errorf("empty target for %q", path)
	}
	if strings.ContainsAny(target, " \t\r\n\"`") {
		return fmt.Errorf("target %q contains whitespace or quotes", target)
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Entries returns the table's entries, most specific first.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup finds the most specific entry whose path equals name or is a
// dotted prefix of it. Prefixes only match on segment boundaries, so an
// entry for "foo.bar" matches "foo.bar.Baz" but not "foo.barn".
func (t *Table) Lookup(name string) (Match, bool) {
	name = strings.TrimPrefix(name, ".")
	for _, e := range t.entries {
		if name == e.Path {
			return Match{Entry: e}, true
		}
		if strings.HasPrefix(name, e.Path) && name[len(e.Path)] == '.' {
			return Match{Entry: e, Remainder: name[len(e.Path)+1:]}, true
		}
	}
	return Match{}, false
}
