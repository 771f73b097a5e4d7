package editor

import "errors"

var (
	// ErrOutOfRange reports an offset, line, column or tab index outside
	// the addressed value.
	ErrOutOfRange = errors.New("position out of range")
	// ErrNotRuneBoundary reports an offset that splits a multi-byte character.
	ErrNotRuneBoundary = errors.New("offset is not on a character boundary")
	// ErrOpMismatch reports a delete whose recorded text no longer matches
	// the buffer.
	ErrOpMismatch = errors.New("edit does not match buffer content")
	// ErrIO wraps file read and write failures surfaced to the user.
	ErrIO = errors.New("i/o error")
	// ErrNoPath reports a save on a document that has never been saved.
	ErrNoPath = errors.New("document has no path; use SaveAs")
	// ErrNoTab reports an operation on a tab index that does not exist.
	ErrNoTab = errors.New("no such tab")
	// ErrBinaryFile reports a file whose content is not text.
	ErrBinaryFile = errors.New("file is not a text file")
)
