// Package entity defines the virtual path identity, entity metadata types
// and the domain error taxonomy shared by the filesystem facade, the REST
// collaborator and the multipart upload engine.
package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Scheme is the URI scheme recognized by Parse and emitted by String.
const Scheme = "syn"

const schemePrefix = Scheme + "://"

var idPattern = regexp.MustCompile(`^syn\d+$`)

// Path is an immutable virtual path identity.
//
// A path is one of two shapes, enforced by the constructors:
//
//   - entity path: an entity id plus an optional version, naming an
//     existing remote object (read target)
//   - write-target path: an entity id (a folder) plus a slash-separated
//     relative name, naming a not-yet-existing upload destination
//
// A path never carries both a version and a relative name. The display
// name is the only mutable state and is memoized once (see DisplayName).
type Path struct {
	id       string
	version  int64 // -1 means latest/unversioned
	relative string

	name nameCell
}

// NewLatestPath returns an entity path addressing the latest version of id.
func NewLatestPath(id string) (*Path, error) {
	if !idPattern.MatchString(id) {
		return nil, NewPathError(ErrInvalidPath, "invalid entity id", id)
	}
	return &Path{id: id, version: -1}, nil
}

// NewEntityPath returns an entity path addressing a specific version of id.
func NewEntityPath(id string, version int64) (*Path, error) {
	if !idPattern.MatchString(id) {
		return nil, NewPathError(ErrInvalidPath, "invalid entity id", id)
	}
	if version < 0 {
		return nil, NewPathError(ErrInvalidPath, "version must be non-negative", id)
	}
	return &Path{id: id, version: version}, nil
}

// NewWriteTargetPath returns a write-target path naming relative inside
// folder id. The relative name may contain slash-separated nested segments.
func NewWriteTargetPath(id, relative string) (*Path, error) {
	if !idPattern.MatchString(id) {
		return nil, NewPathError(ErrInvalidPath, "invalid entity id", id)
	}
	if err := validateRelative(relative); err != nil {
		return nil, err
	}
	return &Path{id: id, version: -1, relative: relative}, nil
}

func validateRelative(relative string) error {
	if relative == "" {
		return NewError(ErrInvalidPath, "empty relative name")
	}
	for _, segment := range strings.Split(relative, "/") {
		if segment == "" {
			return NewPathError(ErrInvalidPath, "empty path segment", relative)
		}
	}
	return nil
}

// Parse parses a raw URI into a Path.
//
// Recognized forms:
//
//	syn://<id>          latest version, read target
//	syn://<id>.<n>      specific version, read target
//	syn://<id>/<name>   write target inside folder <id> (<name> may be nested)
//
// The scheme prefix is optional; trailing slashes are ignored. Anything
// else fails with an ErrInvalidPath error.
func Parse(raw string) (*Path, error) {
	rest := raw

	if i := strings.Index(rest, "://"); i >= 0 {
		if !strings.EqualFold(rest[:i], Scheme) {
			return nil, NewPathError(ErrInvalidPath, "unsupported scheme", raw)
		}
		rest = rest[i+len("://"):]
	}

	rest = strings.TrimRight(rest, "/")
	if rest == "" {
		return nil, NewPathError(ErrInvalidPath, "empty path", raw)
	}

	// Shape (a): <id>/<relativeName>, a write target.
	if i := strings.Index(rest, "/"); i >= 0 {
		p, err := NewWriteTargetPath(rest[:i], rest[i+1:])
		if err != nil {
			return nil, NewPathError(ErrInvalidPath, "invalid write-target path", raw)
		}
		return p, nil
	}

	// Shape (b): <id> or <id>.<version>.
	if i := strings.Index(rest, "."); i >= 0 {
		id, ver := rest[:i], rest[i+1:]
		if strings.Contains(ver, ".") {
			return nil, NewPathError(ErrInvalidPath, "malformed version", raw)
		}
		n, err := strconv.ParseInt(ver, 10, 64)
		if err != nil || n < 0 {
			return nil, NewPathError(ErrInvalidPath, "malformed version", raw)
		}
		p, err := NewEntityPath(id, n)
		if err != nil {
			return nil, NewPathError(ErrInvalidPath, "invalid entity id", raw)
		}
		return p, nil
	}

	p, err := NewLatestPath(rest)
	if err != nil {
		return nil, NewPathError(ErrInvalidPath, "invalid entity id", raw)
	}
	return p, nil
}

// ID returns the entity id.
func (p *Path) ID() string {
	return p.id
}

// Version returns the pinned version and true, or false when the path
// addresses the latest version (or is a write target).
func (p *Path) Version() (int64, bool) {
	if p.version < 0 {
		return 0, false
	}
	return p.version, true
}

// RelativeName returns the slash-separated relative name of a write-target
// path, or the empty string for entity paths.
func (p *Path) RelativeName() string {
	return p.relative
}

// IsWriteTarget reports whether the path names an upload destination.
func (p *Path) IsWriteTarget() bool {
	return p.relative != ""
}

// String formats the path back into its URI form. Parse(p.String())
// yields a path equal to p.
func (p *Path) String() string {
	switch {
	case p.relative != "":
		return schemePrefix + p.id + "/" + p.relative
	case p.version >= 0:
		return fmt.Sprintf("%s%s.%d", schemePrefix, p.id, p.version)
	default:
		return schemePrefix + p.id
	}
}

// Resolve appends a relative segment, producing a write-target path.
//
// Resolving against a write-target path concatenates with a slash, so
// chaining Resolve("a") then Resolve("b") builds the nested name "a/b".
// Resolving against a plain entity path sets the relative name to the
// segment. Versioned paths cannot be resolved against.
func (p *Path) Resolve(segment string) (*Path, error) {
	if p.version >= 0 {
		return nil, NewPathError(ErrInvalidArgument, "cannot resolve against a versioned path", p.String())
	}
	if err := validateRelative(segment); err != nil {
		return nil, err
	}
	relative := segment
	if p.relative != "" {
		relative = p.relative + "/" + segment
	}
	return &Path{id: p.id, version: -1, relative: relative}, nil
}

// Parent returns the pure entity path of a write-target path. Entity
// paths are filesystem-root-like and have no parent; Parent returns nil
// for them.
func (p *Path) Parent() *Path {
	if p.relative == "" {
		return nil
	}
	return &Path{id: p.id, version: -1}
}

// FileName returns a path carrying only the final segment of the relative
// name as its display identity, or nil for entity paths.
func (p *Path) FileName() *Path {
	if p.relative == "" {
		return nil
	}
	segments := strings.Split(p.relative, "/")
	return &Path{id: p.id, version: -1, relative: segments[len(segments)-1]}
}

// Equal reports whether two paths carry the same identity. Display names
// do not participate in equality.
func (p *Path) Equal(other *Path) bool {
	if other == nil {
		return false
	}
	return p.id == other.id && p.version == other.version && p.relative == other.relative
}

// Compare orders paths lexicographically by entity id, then by version
// (absent sorts as zero), then by relative name.
func (p *Path) Compare(other *Path) int {
	if c := strings.Compare(p.id, other.id); c != 0 {
		return c
	}
	pv, ov := p.normVersion(), other.normVersion()
	if pv != ov {
		if pv < ov {
			return -1
		}
		return 1
	}
	return strings.Compare(p.relative, other.relative)
}

func (p *Path) normVersion() int64 {
	if p.version < 0 {
		return 0
	}
	return p.version
}
