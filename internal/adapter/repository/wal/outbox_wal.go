package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/leadhub/internal/domain"
)

const (
	segmentPrefix = "notifications-"
	segmentSuffix = ".wal"
	filePerm      = 0o644
)

// ErrFull is returned when a write would push the log past its disk budget.
var ErrFull = errors.New("wal: disk budget exhausted")

// OutboxWAL is a segmented, append-only file log of notification events.
// It holds events accepted while Redis is unreachable until they can be replayed.
type OutboxWAL struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	// drainMu serializes drains. mu guards the fields below and is never held
	// while a drain handler runs.
	drainMu     sync.Mutex
	mu          sync.Mutex
	segment     *os.File
	segmentPath string
	segmentSize int64
	totalSize   int64
}

// Open creates dir if needed and resumes the newest segment in it.
func Open(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*OutboxWAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create WAL directory %s: %w", dir, err)
	}

	w := &OutboxWAL{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "outbox_wal"),
	}

	segments, err := w.segments()
	if err != nil {
		return nil, err
	}
	for _, s := range segments {
		info, err := os.Stat(s)
		if err != nil {
			return nil, fmt.Errorf("stat segment %s: %w", s, err)
		}
		w.totalSize += info.Size()
	}

	if len(segments) == 0 {
		return w, w.rotate()
	}

	latest := segments[len(segments)-1]
	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", latest, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat segment %s: %w", latest, err)
	}
	w.segment = f
	w.segmentPath = latest
	w.segmentSize = info.Size()
	w.logger.Info("Resumed WAL segment", "path", latest, "size", w.segmentSize, "total_size", w.totalSize)

	if w.segmentSize >= w.maxSegmentSize {
		return w, w.rotate()
	}
	return w, nil
}

// Write appends one event and syncs it to disk before returning.
func (w *OutboxWAL) Write(_ context.Context, event domain.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification for WAL: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.totalSize+int64(len(data)) > w.maxTotalSize {
		return fmt.Errorf("%w (%d bytes used, limit %d)", ErrFull, w.totalSize, w.maxTotalSize)
	}
	if w.segment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.segment.Write(data)
	w.segmentSize += int64(n)
	w.totalSize += int64(n)
	if err != nil {
		return fmt.Errorf("write WAL segment: %w", err)
	}
	if err := w.segment.Sync(); err != nil {
		return fmt.Errorf("sync WAL segment: %w", err)
	}

	if w.segmentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("Failed to rotate WAL segment", "error", err)
		}
	}
	return nil
}

// Drain seals the open segment and hands every event in the sealed segments,
// oldest first, to handler. Each segment is deleted once all of its events were
// handled. Events written while Drain runs land in the new open segment and are
// left for the next call. Lines that fail to decode are skipped. The first
// handler error stops the drain and keeps the failing segment whole.
func (w *OutboxWAL) Drain(ctx context.Context, handler func(event domain.NotificationEvent) error) error {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	sealed, err := w.seal()
	if err != nil {
		return err
	}
	if len(sealed) == 0 {
		return nil
	}
	w.logger.Info("Draining WAL", "segments", len(sealed))

	var replayed, skipped int
	for _, path := range sealed {
		n, s, err := replaySegment(ctx, path, handler)
		replayed += n
		skipped += s
		if err != nil {
			w.logger.Error("WAL drain stopped", "path", path, "replayed", replayed, "error", err)
			return err
		}
		if err := w.remove(path); err != nil {
			return err
		}
	}

	w.logger.Info("WAL drain completed", "replayed", replayed, "skipped", skipped)
	return nil
}

// seal rotates to a fresh segment and returns every older segment.
func (w *OutboxWAL) seal() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.totalSize == 0 {
		return nil, nil
	}
	if err := w.rotate(); err != nil {
		return nil, err
	}

	segments, err := w.segments()
	if err != nil {
		return nil, err
	}
	sealed := segments[:0]
	for _, path := range segments {
		if path != w.segmentPath {
			sealed = append(sealed, path)
		}
	}
	return sealed, nil
}

func (w *OutboxWAL) remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat WAL segment %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove WAL segment %s: %w", path, err)
	}
	w.totalSize -= info.Size()
	if w.totalSize < 0 {
		w.totalSize = 0
	}
	return nil
}

func replaySegment(ctx context.Context, path string, handler func(domain.NotificationEvent) error) (replayed, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open segment %s for replay: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return replayed, skipped, err
		}
		var event domain.NotificationEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			skipped++
			continue
		}
		if err := handler(event); err != nil {
			return replayed, skipped, fmt.Errorf("replay handler: %w", err)
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return replayed, skipped, fmt.Errorf("scan segment %s: %w", path, err)
	}
	return replayed, skipped, nil
}

// Size reports the bytes currently held across all segments.
func (w *OutboxWAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalSize
}

// Close flushes and closes the open segment.
func (w *OutboxWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.segment == nil {
		return nil
	}
	err := w.segment.Close()
	w.segment = nil
	return err
}

func (w *OutboxWAL) closeSegment() {
	if w.segment == nil {
		return
	}
	if err := w.segment.Sync(); err != nil {
		w.logger.Error("Failed to sync WAL segment", "error", err)
	}
	if err := w.segment.Close(); err != nil {
		w.logger.Error("Failed to close WAL segment", "error", err)
	}
	w.segment = nil
	w.segmentPath = ""
}

func (w *OutboxWAL) rotate() error {
	w.closeSegment()

	// Zero-padded so lexical order is creation order.
	name := fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("create WAL segment %s: %w", path, err)
	}
	w.segment = f
	w.segmentPath = path
	w.segmentSize = 0
	w.logger.Debug("Rotated WAL segment", "path", path)
	return nil
}

func (w *OutboxWAL) segments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read WAL directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			out = append(out, filepath.Join(w.dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}
