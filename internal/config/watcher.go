package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads config.yml for a long-running process. No command
// in this repository constructs one: the watch hub reads config.yml once
// at startup. The teacher reconfigures on a timer (internal/monitor.SetConfig);
// since no long-running process existed here before the watch hub, this
// uses fsnotify instead, the way kadirpekel-hector and
// theRebelliousNerd-codenerd watch their own config files.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	current *Config
	logger  *log.Logger
	changes chan []string
}

// NewWatcher starts watching path's parent directory (fsnotify watches
// directories, not bare files, so atomic config saves that rename a temp
// file into place are still observed) and loads the current config.
func NewWatcher(path string, logger *log.Logger) (*Watcher, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		path:    path,
		fsw:     fsw,
		current: cfg,
		logger:  logger,
		changes: make(chan []string, 8),
	}, nil
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config { return w.current }

// Changes returns a channel of diff descriptions, one per detected
// reload, from Diff(old, new).
func (w *Watcher) Changes() <-chan []string { return w.changes }

// Run processes filesystem events until stop is closed. Intended to run
// in its own goroutine.
func (w *Watcher) Run(stop <-chan struct{}) {
	defer w.fsw.Close()
	for {
		select {
		case <-stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	next, err := LoadOrDefault(w.path)
	if err != nil {
		w.logger.Printf("config reload failed: %v", err)
		return
	}
	diff := Diff(w.current, next)
	w.current = next
	if len(diff) == 0 {
		return
	}
	w.logger.Printf("config reloaded: %d change(s)", len(diff))
	select {
	case w.changes <- diff:
	default:
	}
}
