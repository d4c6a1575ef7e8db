package builder

import "errors"

var (
	// ErrInvalidMode indicates a mode other than development or production.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidTarget indicates an unsupported build target.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidBundler indicates an unsupported bundler type.
	ErrInvalidBundler = errors.New("invalid bundler type")
	// ErrEmptyEntry indicates a named entry with no source files.
	ErrEmptyEntry = errors.New("entry has no source files")
)
