// Package vfs exposes the entity store through a POSIX-like virtual
// filesystem facade: path-addressed channels, copies and attribute
// checks, backed by the REST collaborator and the multipart upload
// engine.
package vfs

// OpenFlag selects the access mode of OpenChannel.
type OpenFlag int

const (
	FlagRead OpenFlag = 1 << iota
	FlagWrite
	FlagCreate
	FlagCreateNew
	FlagTruncate
	FlagAppend
)

// writeIntent reports whether the flag set asks for a writable channel.
func (f OpenFlag) writeIntent() bool {
	return f&(FlagWrite|FlagCreate|FlagCreateNew|FlagTruncate|FlagAppend) != 0
}

// AccessMode selects the permissions CheckAccess verifies.
type AccessMode int

const (
	AccessRead AccessMode = 1 << iota
	AccessWrite
)

// Channel is the seekable byte channel contract served by the facade.
//
// Read returns io.EOF once the source is exhausted. SetPosition and
// Truncate availability depend on the channel direction: read channels
// are forward-only and reject writes, write channels buffer locally with
// full random access and reject reads. Close is idempotent on both.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	// Position returns the current byte offset.
	Position() (int64, error)

	// SetPosition moves the byte offset where supported.
	SetPosition(offset int64) error

	// Size returns the channel size in bytes, or -1 when unknown.
	Size() (int64, error)

	// Truncate cuts the channel to the given size where supported.
	Truncate(size int64) error

	Close() error
}
