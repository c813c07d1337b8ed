// Package assets handles local input assets referenced by workflow nodes:
// the `name[category]` reference syntax, resolution against per-category
// storage roots, and uploading into a remote peer before dispatch.
package assets

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultCategory is the storage category an unannotated reference selects.
const DefaultCategory = "input"

// Ref is a parsed asset reference.
type Ref struct {
	Name     string
	Category string
}

// ParseRef splits `name[category]` syntax; an unannotated reference gets the
// default category. Filenames containing '[' as data are not supported; the
// split always happens on the first bracket.
func ParseRef(s string) Ref {
	if i := strings.Index(s, "["); i >= 0 {
		return Ref{
			Name:     s[:i],
			Category: strings.TrimSuffix(s[i+1:], "]"),
		}
	}
	return Ref{Name: s, Category: DefaultCategory}
}

// String renders the reference, omitting the annotation for the default
// category.
func (r Ref) String() string {
	if r.Category == DefaultCategory || r.Category == "" {
		return r.Name
	}
	return fmt.Sprintf("%s[%s]", r.Name, r.Category)
}

// Resolver maps storage categories to local directories.
type Resolver struct {
	roots map[string]string
}

// NewResolver creates a resolver over category roots, e.g.
// {"input": "./input", "output": "./output"}.
func NewResolver(roots map[string]string) *Resolver {
	if roots == nil {
		roots = map[string]string{}
	}
	return &Resolver{roots: roots}
}

// Path resolves a reference to a local file path. Unknown categories resolve
// relative to the current directory, which will surface as a missing file.
func (r *Resolver) Path(ref Ref) string {
	return filepath.Join(r.roots[ref.Category], ref.Name)
}
