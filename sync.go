package fileaccess

import (
	"io"
)

type syncer interface {
	Sync() error
}

type fileSync struct {
	s    syncer
	name string
}

// NewFileSync returns the durable-write token for w. It fails with ErrIO
// and ErrNotSupported when w has no durable-storage descriptor, that is,
// when it has no Sync() error method.
func NewFileSync(w io.Writer) (FileSync, error) {
	name := writerName(w)
	s, ok := w.(syncer)
	if !ok {
		return nil, ioError("sync", name, ErrNotSupported)
	}
	return &fileSync{s: s, name: name}, nil
}

// Sync flushes to durable storage. Errors, including the one returned once
// the stream is closed, match ErrIO.
func (f *fileSync) Sync() error {
	if err := f.s.Sync(); err != nil {
		return ioError("sync", f.name, err)
	}
	return nil
}

func writerName(w io.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}
