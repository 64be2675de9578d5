package namespace

import (
	"fmt"
	"strings"
)

// Ref is a relative reference from one package to another: go up Ascend
// levels, then down through Descend.
type Ref struct {
	Ascend  int
	Descend []string
}

// IsLocal reports whether the reference stays in the same package.
func (r Ref) IsLocal() bool {
	return r.Ascend == 0 && len(r.Descend) == 0
}

// String renders the reference as a relative path, such as "." or "../../x/y".
func (r Ref) String() string {
	if r.IsLocal() {
		return "."
	}
	parts := make([]string, 0, r.Ascend+len(r.Descend))
	for i := 0; i < r.Ascend; i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, r.Descend...)
	return strings.Join(parts, "/")
}

// Apply returns the path reached by following r from the given path.
func (r Ref) Apply(from []string) []string {
	keep := len(from) - r.Ascend
	if keep < 0 {
		keep = 0
	}
	to := make([]string, 0, keep+len(r.Descend))
	to = append(to, from[:keep]...)
	return append(to, r.Descend...)
}

// UnrelatedError is returned by Resolve when two packages share no leading
// segment. A reference between them can't be expressed relatively; the
// referenced type has to be mapped to an external type instead.
type UnrelatedError struct {
	From, To string
}

func (e *UnrelatedError) Error() string {
	return fmt.Sprintf("packages %q and %q share no common prefix", e.From, e.To)
}

// Resolve computes the shortest relative reference from package from to
// package to. Both are dotted package names.
//
// The same package resolves to a local reference. An ancestor is reached by
// ascending only and a descendant by descending only. Otherwise the
// reference ascends to the longest shared prefix and descends from there;
// if there is no shared prefix, Resolve returns an *UnrelatedError.
func Resolve(from, to string) (Ref, error) {
	f, t := Split(from), Split(to)
	common := 0
	for common < len(f) && common < len(t) && f[common] == t[common] {
		common++
	}
	switch {
	case common == len(f) && common == len(t):
		return Ref{}, nil
	case common == len(t):
		return Ref{Ascend: len(f) - common}, nil
	case common == len(f):
		return Ref{Descend: t[common:]}, nil
	case common == 0:
		return Ref{}, &UnrelatedError{From: from, To: to}
	default:
		return Ref{Ascend: len(f) - common, Descend: t[common:]}, nil
	}
}

// Split breaks a dotted package name into segments. The empty package has
// no segments.
func Split(pkg string) []string {
	pkg = strings.TrimPrefix(pkg, ".")
	if pkg == "" {
		return nil
	}
	return strings.Split(pkg, ".")
}
