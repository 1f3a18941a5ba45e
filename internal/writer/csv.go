// internal/writer/csv.go
package writer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tamzrod/powerlog/internal/poller"
)

// CSVSink is the append-only power log.
// Every row is fsynced before Write returns.
type CSVSink struct {
	path string
	log  *slog.Logger

	mu     sync.Mutex
	f      *os.File
	w      *csv.Writer
	closed bool
}

// NewCSVSink creates a sink for path. Nothing touches disk until Open.
func NewCSVSink(path string, log *slog.Logger) *CSVSink {
	if log == nil {
		log = slog.Default()
	}
	return &CSVSink{path: path, log: log}
}

// Path returns the log file path.
func (s *CSVSink) Path() string { return s.path }

// Open prepares the file for appending. Safe to call more than once.
// The header is written only when the file is new or empty.
// Existing rows are never truncated.
func (s *CSVSink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.f != nil {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writer: create dir %s: %w", dir, err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("writer: open %s: %w", s.path, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("writer: stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)

	if st.Size() == 0 {
		if err := w.Write(Header); err != nil {
			_ = f.Close()
			return fmt.Errorf("writer: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return fmt.Errorf("writer: write header: %w", err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("writer: sync header: %w", err)
		}
		syncDir(dir)
		s.log.Info("created power log", "path", s.path)
	} else {
		if err := s.repairTail(f, st.Size()); err != nil {
			_ = f.Close()
			return err
		}
		s.checkHeader(f, st.Size())
		s.log.Info("appending to existing power log", "path", s.path, "bytes", st.Size())
	}

	s.f = f
	s.w = w
	return nil
}

// Write appends one row and forces it to stable storage.
func (s *CSVSink) Write(rec poller.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.f == nil {
		return fmt.Errorf("writer: %s not open", s.path)
	}

	if err := s.w.Write([]string{rec.Timestamp, rec.Value}); err != nil {
		return fmt.Errorf("writer: append %s: %w", s.path, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("writer: append %s: %w", s.path, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("writer: sync %s: %w", s.path, err)
	}
	return nil
}

// Close releases the file. Safe to call multiple times.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.w = nil, nil
	return err
}

// repairTail terminates a row torn by a crash so the next row starts on
// its own line.
func (s *CSVSink) repairTail(f *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("writer: read tail %s: %w", s.path, err)
	}
	if last[0] == '\n' {
		return nil
	}

	s.log.Warn("power log does not end with a newline, terminating last row", "path", s.path)
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("writer: repair tail %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("writer: sync %s: %w", s.path, err)
	}
	return nil
}

// checkHeader warns when an existing file carries a different schema row.
// The file is still appended to.
func (s *CSVSink) checkHeader(f *os.File, size int64) {
	line, err := bufio.NewReader(io.NewSectionReader(f, 0, size)).ReadString('\n')
	if err != nil && err != io.EOF {
		s.log.Warn("could not read power log header", "path", s.path, "err", err)
		return
	}
	line = strings.TrimRight(line, "\r\n")
	if want := strings.Join(Header, ","); line != want {
		s.log.Warn("unexpected power log header", "path", s.path, "got", line, "want", want)
	}
}

// syncDir makes a newly created file's directory entry durable.
// Best effort: not every platform supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
