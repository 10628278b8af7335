package tasklist

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Source supplies the ordered task list references of a session, oldest first.
type Source interface {
	Current() []Reference
	// Updates delivers the full list each time it changes. Nil when the list is fixed.
	Updates() <-chan []Reference
}

// StaticSource is a fixed list, e.g. from command line arguments.
type StaticSource []Reference

func (s StaticSource) Current() []Reference        { return s }
func (s StaticSource) Updates() <-chan []Reference { return nil }

// FileSource reads references from a file, one per line, and republishes the
// list whenever the file changes.
type FileSource struct {
	path    string
	fsw     *fsnotify.Watcher
	updates chan []Reference
	stop    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	refs    []Reference
	started bool
}

func NewFileSource(path string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	refs, err := readReferences(abs)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileSource{
		path:    abs,
		fsw:     fsw,
		refs:    refs,
		updates: make(chan []Reference, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Start watches the file's directory so that editors replacing the file are seen.
func (s *FileSource) Start() error {
	if err := s.fsw.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go s.loop()
	return nil
}

func (s *FileSource) Stop() {
	select {
	case <-s.stop:
		return
	default:
	}
	close(s.stop)
	s.fsw.Close()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.stopped
	}
}

func (s *FileSource) Current() []Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

func (s *FileSource) Updates() <-chan []Reference {
	return s.updates
}

func (s *FileSource) loop() {
	defer close(s.stopped)

	for {
		select {
		case <-s.stop:
			return

		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.reload()

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("Reference file watch error", "path", s.path, "error", err)
		}
	}
}

func (s *FileSource) reload() {
	refs, err := readReferences(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to read reference file", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	s.refs = refs
	s.mu.Unlock()

	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- refs:
	case <-s.stop:
	}
}

func readReferences(path string) ([]Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseReferences(f)
}

// parseReferences skips blank lines and # comments.
func parseReferences(r io.Reader) ([]Reference, error) {
	var refs []Reference
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, Reference(line))
	}
	return refs, scanner.Err()
}
