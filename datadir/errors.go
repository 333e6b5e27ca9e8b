package datadir

import "errors"

var (
	// ErrNotFound is returned when a key resolves to neither a node nor an
	// attribute of the node's parent.
	ErrNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned when an insertion key or a created root
	// path collides with an existing one.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotLinked is returned when a lazy load or a disk write is attempted
	// on a container that has no backing directory.
	ErrNotLinked = errors.New("container not linked to a backing directory")

	// ErrInvalidFormat is returned when a descriptor file is missing,
	// unparseable, or declares an unexpected type.
	ErrInvalidFormat = errors.New("invalid data directory format")

	// ErrReadOnly is returned when mutation is attempted on a container
	// opened in read mode.
	ErrReadOnly = errors.New("container opened read-only")

	// ErrUnsupportedType is returned when an inserted value is not one of
	// the element kinds.
	ErrUnsupportedType = errors.New("unsupported element type")
)
