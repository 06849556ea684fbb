package intake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/aida/proposal"
)

// eventChannelBuffer is the size of the profile event channel.
const eventChannelBuffer = 64

// defaultDebounce is the quiet period applied when none is configured.
const defaultDebounce = 500 * time.Millisecond

// profileExtensions are the file extensions treated as profile drops.
var profileExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// ProfileEvent is a profile that arrived in the drop directory.
type ProfileEvent struct {
	// Path is the file path relative to the drop directory.
	Path string

	// Profile is the loaded, validated profile. Nil when Err is set.
	Profile *proposal.UserProfile

	// Err is set when the file could not be loaded or failed validation.
	Err error
}

// Watcher watches a drop directory for profile files. Writes are debounced
// so partially written files settle before loading, and content hashing
// suppresses duplicate events for unchanged files.
type Watcher struct {
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]struct{}

	// Hash-based change detection
	hashMu sync.Mutex
	hashes map[string]string

	events chan ProfileEvent

	droppedEvents atomic.Int64
}

// NewWatcher creates a profile drop-directory watcher.
func NewWatcher(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]struct{}),
		hashes:   make(map[string]string),
		events:   make(chan ProfileEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of profile events.
func (w *Watcher) Events() <-chan ProfileEvent {
	return w.events
}

// Start begins watching the drop directory. The directory is created if it
// doesn't exist.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Profile watcher started",
		"dir", w.dir,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent accumulates a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if !profileExtensions[ext] {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("Profile change detected", "path", event.Name, "op", event.Op.String())
}

// flushPending loads accumulated profile files and emits events.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := make([]string, 0, len(w.pending))
	for path := range w.pending {
		toProcess = append(toProcess, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	for _, path := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, _ := filepath.Rel(w.dir, path)

		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // Removed before the debounce window closed
			}
			w.logger.Warn("Failed to read profile", "path", relPath, "error", err)
			continue
		}

		if !w.contentChanged(relPath, content) {
			continue
		}

		ev := ProfileEvent{Path: relPath}
		profile, err := LoadProfile(path)
		if err != nil {
			ev.Err = err
			w.logger.Warn("Rejected profile", "path", relPath, "error", err)
		} else {
			ev.Profile = profile
		}
		w.sendEvent(ev)
	}
}

// contentChanged records the file's content hash and reports whether it
// differs from the last seen hash.
func (w *Watcher) contentChanged(relPath string, content []byte) bool {
	sum := sha256.Sum256(content)
	newHash := hex.EncodeToString(sum[:])

	w.hashMu.Lock()
	defer w.hashMu.Unlock()

	if w.hashes[relPath] == newHash {
		return false
	}
	w.hashes[relPath] = newHash
	return true
}

// sendEvent sends an event to the output channel, dropping on overflow.
func (w *Watcher) sendEvent(ev ProfileEvent) {
	select {
	case w.events <- ev:
		w.logger.Debug("Sent profile event", "path", ev.Path)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping profile",
			"path", ev.Path,
			"total_dropped", dropped)
	}
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}
