package dsl

import (
	"path/filepath"
)

// FileReader loads raw source text for a resolved include path. Production
// callers pass an os.ReadFile-backed implementation; tests pass an
// in-memory map, matching the teacher's preprocessor.go seam for swapping
// the file system in tests.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// Unit is one file's parse tree plus the cleaned path it was loaded from,
// in the order resolution first reached it (depth-first preorder).
type Unit struct {
	Path string
	File *File
}

// Resolve expands entryPath's #include directives depth-first preorder
// (§4.2): each included file is parsed exactly once, relative include paths
// are resolved against the including file's directory, and a file that
// re-enters its own ancestor chain raises CircularIncludeError. Errors from
// every visited file are collected into one ErrorList rather than failing
// on the first (§7's C1-C5 policy).
func Resolve(entryPath string, fr FileReader) ([]*Unit, *ErrorList) {
	r := &resolver{fr: fr, visited: map[string]*Unit{}, errs: &ErrorList{}}
	r.visit(entryPath, nil)
	return r.order, r.errs
}

type resolver struct {
	fr      FileReader
	visited map[string]*Unit
	order   []*Unit
	errs    *ErrorList
}

func (r *resolver) visit(path string, stack []string) {
	abs := filepath.Clean(path)
	for _, s := range stack {
		if s == abs {
			cycle := append(append([]string{}, stack...), abs)
			r.errs.Add(&CircularIncludeError{Cycle: cycle})
			return
		}
	}
	if _, ok := r.visited[abs]; ok {
		return
	}

	src, err := r.fr.ReadFile(abs)
	if err != nil {
		r.errs.Add(err)
		return
	}
	f, ferrs := Parse(src, abs)
	for _, e := range ferrs.Errors {
		r.errs.Add(e)
	}

	u := &Unit{Path: abs, File: f}
	r.visited[abs] = u
	r.order = append(r.order, u)

	dir := filepath.Dir(abs)
	childStack := append(stack, abs)
	for _, inc := range f.Includes {
		childPath := inc
		if !filepath.IsAbs(inc) {
			childPath = filepath.Join(dir, inc)
		}
		r.visit(childPath, childStack)
	}
}
