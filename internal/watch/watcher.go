// Package watch reports changes to the category data files of a data directory.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mediashelf/internal/catalog"
	"github.com/starford/mediashelf/internal/checksum"
	"github.com/starford/mediashelf/internal/source"
	"github.com/starford/mediashelf/internal/storage"
)

// Change kinds passed to a Callback.
const (
	KindUpdated = "updated"
	KindRemoved = "removed"
)

const (
	settleDelay    = 100 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// Callback is called once per effective change. key is a category key, or
// catalog.HomeKey for the home document.
type Callback func(kind, key string)

// Watcher maps data file events onto category changes. Files whose content did not
// change and files no category reads from are ignored.
type Watcher struct {
	store  storage.Provider
	logger *slog.Logger
	routes map[string]string // data file -> key

	known *checksum.Set // owned by Run
}

// New creates a watcher for the categories of reg and the home document.
func New(reg *catalog.Registry, store storage.Provider, homeLocator string, logger *slog.Logger) *Watcher {
	if homeLocator == "" {
		homeLocator = source.DefaultHomeLocator
	}
	routes := map[string]string{source.PathFor(homeLocator): catalog.HomeKey}
	for _, cfg := range reg.All() {
		routes[source.PathFor(cfg.Locator)] = cfg.Key
	}
	return &Watcher{
		store:  store,
		logger: logger,
		routes: routes,
		known:  checksum.NewSet(),
	}
}

// Run watches the data directory until ctx is cancelled.
//
// Writes are read back once a file has been quiet for a short while, so a save that
// truncates before writing is seen as one change. fsnotify fires Rename on the old
// path only, so renames are reported as removals and followed by a debounced
// reconciliation against the directory listing.
func (w *Watcher) Run(ctx context.Context, cb Callback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.store.Root()
	if err := fw.Add(root); err != nil {
		return err
	}
	w.snapshot()

	w.logger.Info("watcher: started", slog.String("root", root))

	settle := newDebounce(settleDelay)
	reconcile := newDebounce(reconcileDelay)
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			settle.stop()
			reconcile.stop()
			w.logger.Info("watcher: stopped")
			return nil

		case <-settle.c:
			for name := range pending {
				w.refresh(name, w.routes[name], cb)
			}
			clear(pending)

		case <-reconcile.c:
			w.reconcile(cb)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			key, routed := w.routes[name]
			if !routed || !storage.IsDataFile(name) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[name] = struct{}{}
				settle.schedule()

			case ev.Op&fsnotify.Remove != 0:
				delete(pending, name)
				w.forget(name, key, cb)

			case ev.Op&fsnotify.Rename != 0:
				delete(pending, name)
				w.forget(name, key, cb)
				reconcile.schedule()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// snapshot records the checksums of the files present at startup.
func (w *Watcher) snapshot() {
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: initial listing failed", slog.String("error", err.Error()))
		return
	}
	for _, m := range metas {
		if _, ok := w.routes[m.Path]; ok {
			w.known.Observe(m.Path, m.Checksum)
		}
	}
}

func (w *Watcher) refresh(name, key string, cb Callback) {
	data, err := w.store.Read(name)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", name), slog.String("error", err.Error()))
		return
	}
	if !w.known.Observe(name, checksum.Sum(data)) {
		return
	}
	w.logger.Debug("watcher: changed", slog.String("path", name), slog.String("key", key))
	cb(KindUpdated, key)
}

func (w *Watcher) forget(name, key string, cb Callback) {
	if !w.known.Forget(name) {
		return
	}
	w.logger.Debug("watcher: removed", slog.String("path", name), slog.String("key", key))
	cb(KindRemoved, key)
}

// reconcile compares the known files with a fresh listing and reports the difference.
func (w *Watcher) reconcile(cb Callback) {
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		if _, ok := w.routes[m.Path]; ok {
			disk[m.Path] = m.Checksum
		}
	}

	for _, name := range w.known.Missing(disk) {
		w.forget(name, w.routes[name], cb)
	}
	for name, sum := range disk {
		if !w.known.Observe(name, sum) {
			continue
		}
		w.logger.Debug("reconcile: changed", slog.String("path", name))
		cb(KindUpdated, w.routes[name])
	}
}

// debounce is a resettable timer whose channel is nil until first scheduled.
type debounce struct {
	d     time.Duration
	timer *time.Timer
	c     <-chan time.Time
}

func newDebounce(d time.Duration) *debounce {
	return &debounce{d: d}
}

func (d *debounce) schedule() {
	if d.timer == nil {
		d.timer = time.NewTimer(d.d)
		d.c = d.timer.C
		return
	}
	d.timer.Reset(d.d)
}

func (d *debounce) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
