// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
)

// StaticTokens is a token source double: known sessions get a fixed token, anonymous callers get AppToken.
type StaticTokens struct {
	AppToken string
	Sessions map[string]string
	Err      error
}

func (s *StaticTokens) AccessToken(ctx context.Context, sessionKey string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if sessionKey == "" {
		return s.AppToken, nil
	}
	if token, ok := s.Sessions[sessionKey]; ok {
		return token, nil
	}
	return "", shared.ErrUnauthenticated
}

// FakeYtdlp stands in for the yt-dlp binary.
//
// Searches answer with Searches[query] (or Default) as line-delimited JSON. Downloads write a small file at the
// requested output template unless SkipWrite is set.
type FakeYtdlp struct {
	Searches    map[string]string
	Default     string
	SearchErr   error
	DownloadErr error
	Stderr      string
	SkipWrite   bool
	// Block makes every call wait for its context to end.
	Block bool

	mu    sync.Mutex
	calls [][]string
}

func (f *FakeYtdlp) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return nil, []byte("killed"), ctx.Err()
	}

	if len(args) > 0 && strings.HasPrefix(args[0], "ytsearch") {
		if f.SearchErr != nil {
			return nil, []byte(f.Stderr), f.SearchErr
		}
		_, query, _ := strings.Cut(args[0], ":")
		if out, ok := f.Searches[query]; ok {
			return []byte(out), nil, nil
		}
		return []byte(f.Default), nil, nil
	}

	if !f.SkipWrite {
		if path := outputFile(args); path != "" {
			if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
				return nil, []byte(err.Error()), err
			}
		}
	}
	return nil, []byte(f.Stderr), f.DownloadErr
}

// Calls returns every invocation as name followed by its arguments.
func (f *FakeYtdlp) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// Downloads counts invocations that were not searches.
func (f *FakeYtdlp) Downloads() int {
	n := 0
	for _, call := range f.Calls() {
		if len(call) > 1 && !strings.HasPrefix(call[1], "ytsearch") {
			n++
		}
	}
	return n
}

func outputFile(args []string) string {
	format := "mp3"
	var template string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--audio-format":
			format = args[i+1]
		case "-o":
			template = args[i+1]
		}
	}
	return strings.ReplaceAll(template, "%(ext)s", format)
}

// Candidate renders one yt-dlp search entry.
func Candidate(id, title, uploader string, seconds float64) string {
	return fmt.Sprintf(`{"id":%q,"title":%q,"uploader":%q,"duration":%g,"webpage_url":"https://www.youtube.com/watch?v=%s"}`,
		id, title, uploader, seconds, id)
}

// NDJSON joins entries one per line.
func NDJSON(entries ...string) string {
	return strings.Join(entries, "\n") + "\n"
}

// MemoryLedger is an in-memory download ledger.
type MemoryLedger struct {
	mu        sync.Mutex
	downloads map[string]*models.Download
	RecordErr error
}

func (l *MemoryLedger) GetByTrackID(ctx context.Context, trackID string) (*models.Download, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.downloads[trackID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: download for track %s", shared.ErrNotFound, trackID)
}

func (l *MemoryLedger) Record(ctx context.Context, d *models.Download) error {
	if l.RecordErr != nil {
		return l.RecordErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.downloads == nil {
		l.downloads = map[string]*models.Download{}
	}
	cp := *d
	l.downloads[d.TrackID] = &cp
	return nil
}

// Len reports how many tracks have a recorded download.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.downloads)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
