package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gglang/the-voices-sub000/logging"
)

const archiveHourLayout = "2006-01-02-15"

// Archive writes events as zstd-compressed JSON lines, one file per UTC hour
// named <prefix>-<hour>.jsonl.zst.
type Archive struct {
	dir    string
	prefix string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewArchive(dir, prefix string) *Archive {
	if prefix == "" {
		prefix = "events"
	}
	return &Archive{dir: dir, prefix: prefix}
}

func (a *Archive) Write(event logging.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := event.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	hour := ts.UTC().Format(archiveHourLayout)
	if hour != a.curHour {
		if err := a.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(wireEvent(event))
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	return a.w.WriteByte('\n')
}

func (a *Archive) Close(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

// PathForHour returns the archive file holding events from t's hour.
func (a *Archive) PathForHour(t time.Time) string {
	return filepath.Join(a.dir, fmt.Sprintf("%s-%s.jsonl.zst", a.prefix, t.UTC().Format(archiveHourLayout)))
}

func (a *Archive) rotateLocked(hour string) error {
	if err := a.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.dir, fmt.Sprintf("%s-%s.jsonl.zst", a.prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	a.f = f
	a.enc = enc
	a.w = bufio.NewWriterSize(enc, 128*1024)
	a.curHour = hour
	return nil
}

func (a *Archive) closeLocked() error {
	var firstErr error
	if a.w != nil {
		firstErr = a.w.Flush()
	}
	if a.enc != nil {
		if err := a.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.enc = nil
	}
	if a.f != nil {
		if err := a.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.f = nil
	}
	a.w = nil
	a.curHour = ""
	return firstErr
}
