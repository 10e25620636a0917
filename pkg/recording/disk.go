package recording

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DiskSink writes a recording to a single append-only segment file.
type DiskSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// NewDiskSink creates the segment file at path, creating parent
// directories as needed. An existing file at path is truncated.
func NewDiskSink(path string) (*DiskSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recording: create segment dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recording: create segment: %w", err)
	}
	return &DiskSink{file: f, writer: bufio.NewWriter(f)}, nil
}

// Record implements Sink.
func (s *DiskSink) Record(ev Event) error {
	line, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	_, err = s.writer.Write(line)
	return err
}

// Close implements Sink.
func (s *DiskSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
