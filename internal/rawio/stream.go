// Package rawio implements the binary model-serialization protocol: the
// msgpack model-probability container and the raw potential file, both
// addressed through path-or-stream targets with transparent gzip by
// filename suffix.
package rawio

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sink is an output target built from either a filesystem path or an
// already-open stream. Close releases only the handles Sink itself opened,
// newest first, and is safe to call after a failed write.
type Sink struct {
	w     io.Writer
	owned []io.Closer
}

func NewSink(target any) (*Sink, error) {
	switch t := target.(type) {
	case string:
		f, err := os.Create(t)
		if err != nil {
			return nil, err
		}
		s := &Sink{w: f, owned: []io.Closer{f}}
		if strings.HasSuffix(t, ".gz") {
			zw := gzip.NewWriter(f)
			s.w = zw
			s.owned = append(s.owned, zw)
		}
		return s, nil
	case io.Writer:
		return &Sink{w: t}, nil
	default:
		return nil, fmt.Errorf("unsupported sink target %T", target)
	}
}

func (s *Sink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *Sink) Close() error {
	var first error
	for i := len(s.owned) - 1; i >= 0; i-- {
		if err := s.owned[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Source is the reading counterpart of Sink.
type Source struct {
	r     io.Reader
	owned []io.Closer
}

func NewSource(target any) (*Source, error) {
	switch t := target.(type) {
	case string:
		f, err := os.Open(t)
		if err != nil {
			return nil, err
		}
		s := &Source{r: f, owned: []io.Closer{f}}
		if strings.HasSuffix(t, ".gz") {
			zr, err := gzip.NewReader(f)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			s.r = zr
			s.owned = append(s.owned, zr)
		}
		return s, nil
	case io.Reader:
		return &Source{r: t}, nil
	default:
		return nil, fmt.Errorf("unsupported source target %T", target)
	}
}

func (s *Source) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *Source) Close() error {
	var first error
	for i := len(s.owned) - 1; i >= 0; i-- {
		if err := s.owned[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
