// Package planlock implements the FIFO fair mutex of spec.md §4.4: a
// sentinel .lock file whose exclusive create is the acquisition
// primitive, a .lock_info sidecar recording the holder, and a
// .lock_queue/ directory of one JSON file per waiter. The exclusive-create
// primitive and LockInfo shape are ported from original_source's
// core/lock.py; the queue directory, fairness check, and stale GC are a
// from-scratch implementation of spec.md's normative acquisition protocol
// (the Python original had no queue), styled after the teacher's
// mutex-guarded internal/session.Store for the in-memory bookkeeping half.
package planlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/joelklabo/planloop/internal/deadlock"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planerrors"
	"github.com/joelklabo/planloop/internal/planlog"
	"github.com/joelklabo/planloop/internal/planstate"
)

const (
	lockFileName          = ".lock"
	lockInfoFileName      = ".lock_info"
	queueDirName          = ".lock_queue"
	defaultTimeout        = 30 * time.Second
	defaultSleep          = 100 * time.Millisecond
	defaultStaleAfter     = 30 * time.Second
	defaultStallThreshold = 5
)

// Options tunes an acquisition. Zero values fall back to spec.md §4.4's
// defaults (timeout 30s, sleep 100ms, stale-after 30s, stall threshold 5).
type Options struct {
	Timeout        time.Duration
	Sleep          time.Duration
	StaleAfter     time.Duration
	StallThreshold int
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = defaultTimeout
	}
	if o.Sleep == 0 {
		o.Sleep = defaultSleep
	}
	if o.StaleAfter == 0 {
		o.StaleAfter = defaultStaleAfter
	}
	if o.StallThreshold == 0 {
		o.StallThreshold = defaultStallThreshold
	}
	return o
}

// Info is the sidecar recording who holds the lock.
type Info struct {
	HeldBy    string    `json:"held_by"`
	Since     time.Time `json:"since"`
	Operation string    `json:"operation"`
}

// QueueEntry is one waiter's position in the fair lock queue
// (spec.md §3).
type QueueEntry struct {
	ID          string    `json:"id"`
	Agent       string    `json:"agent"`
	Operation   string    `json:"operation"`
	RequestedAt time.Time `json:"requested_at"`
}

func lockPath(sessionDir string) string      { return filepath.Join(sessionDir, lockFileName) }
func lockInfoPath(sessionDir string) string  { return filepath.Join(sessionDir, lockInfoFileName) }
func queueDirPath(sessionDir string) string  { return filepath.Join(sessionDir, queueDirName) }
func entryPath(sessionDir, id string) string { return filepath.Join(queueDirPath(sessionDir), id+".json") }

// Handle represents a held lock; call Release on scope exit.
type Handle struct {
	sessionDir string
	entryID    string
	acquiredAt time.Time
	logger     *planlog.SessionLogger
}

// TimeoutError carries the identity of the lock's current holder, per
// spec.md §7's LockTimeout error.
type TimeoutError struct {
	HeldBy string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: held by %s", planerrors.ErrLockTimeout, e.HeldBy)
}

func (e *TimeoutError) Unwrap() error { return planerrors.ErrLockTimeout }

// Acquire runs the protocol of spec.md §4.4: enqueue, then loop pruning
// stale entries and (only when this caller heads the queue) attempting
// the exclusive create, until success or timeout.
func Acquire(sessionDir, agent, operation string, opts Options) (*Handle, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(queueDirPath(sessionDir), 0o755); err != nil {
		return nil, fmt.Errorf("planlock: mkdir queue: %w", err)
	}

	logger, _ := planlog.For(sessionDir)

	entry := QueueEntry{
		ID:          uuid.NewString(),
		Agent:       agent,
		Operation:   operation,
		RequestedAt: time.Now().UTC(),
	}
	if err := writeEntry(sessionDir, entry); err != nil {
		return nil, fmt.Errorf("planlock: enqueue: %w", err)
	}
	if logger != nil {
		logger.LogEvent("lock_requested", map[string]any{"agent": agent, "operation": operation, "entry_id": entry.ID})
	}

	start := time.Now()
	cleanupQueueEntry := func() {
		os.Remove(entryPath(sessionDir, entry.ID))
	}

	for {
		queue, err := pruneStale(sessionDir, opts.StaleAfter, logger)
		if err != nil {
			cleanupQueueEntry()
			return nil, fmt.Errorf("planlock: prune queue: %w", err)
		}

		isHead := len(queue) > 0 && queue[0].ID == entry.ID

		// Only a non-head waiter reports a stall tick: the head is about
		// to attempt acquisition and has nothing to report, and skipping
		// it avoids the head's scan clobbering a non-head's in-progress
		// count on every poll.
		if !isHead {
			if err := checkQueueStall(sessionDir, queue, opts.StallThreshold, logger); err != nil && logger != nil {
				logger.Infof("queue stall check failed: %v", err)
			}
		}

		if isHead {
			acquired, err := tryCreateLock(sessionDir, agent, operation)
			if err != nil {
				cleanupQueueEntry()
				return nil, fmt.Errorf("planlock: create lock: %w", err)
			}
			if acquired {
				cleanupQueueEntry()
				waitMS := time.Since(start).Milliseconds()
				if logger != nil {
					logger.LogEvent("lock_acquired", map[string]any{"agent": agent, "operation": operation, "wait_ms": waitMS})
				}
				return &Handle{sessionDir: sessionDir, entryID: entry.ID, acquiredAt: time.Now(), logger: logger}, nil
			}
		}

		if time.Since(start) > opts.Timeout {
			cleanupQueueEntry()
			holder := "unknown"
			if info, err := readInfo(sessionDir); err == nil && info != nil {
				holder = info.HeldBy
			}
			return nil, &TimeoutError{HeldBy: holder}
		}
		time.Sleep(opts.Sleep)
	}
}

// Release tears down .lock, .lock_info, and the caller's (already-removed)
// queue entry, logging hold_ms.
func (h *Handle) Release() error {
	if err := os.Remove(lockPath(h.sessionDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("planlock: remove lock: %w", err)
	}
	if err := os.Remove(lockInfoPath(h.sessionDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("planlock: remove lock info: %w", err)
	}
	if h.logger != nil {
		h.logger.LogEvent("lock_released", map[string]any{"hold_ms": time.Since(h.acquiredAt).Milliseconds()})
	}
	return nil
}

func tryCreateLock(sessionDir, agent, operation string) (bool, error) {
	fh, err := os.OpenFile(lockPath(sessionDir), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	fh.Close()

	info := Info{HeldBy: agent, Since: time.Now().UTC(), Operation: operation}
	data, err := json.Marshal(info)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(lockInfoPath(sessionDir), data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func readInfo(sessionDir string) (*Info, error) {
	data, err := os.ReadFile(lockInfoPath(sessionDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, nil
	}
	return &info, nil
}

// Status reports whether a session is currently locked and by whom.
func Status(sessionDir string) (locked bool, info *Info, err error) {
	if _, statErr := os.Stat(lockPath(sessionDir)); statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil, nil
		}
		return false, nil, statErr
	}
	info, err = readInfo(sessionDir)
	return true, info, err
}

func writeEntry(sessionDir string, entry QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(entryPath(sessionDir, entry.ID), data, 0o644)
}

// loadQueue reads every entry in .lock_queue/, sorted by RequestedAt
// ascending (FIFO order).
func loadQueue(sessionDir string) ([]QueueEntry, error) {
	dir := queueDirPath(sessionDir)
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]QueueEntry, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			continue // a concurrently-removed entry; not our problem
		}
		var e QueueEntry
		if err := json.Unmarshal(data, &e); err != nil {
			continue // malformed entry, skip rather than fail the whole scan
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RequestedAt.Before(entries[j].RequestedAt)
	})
	return entries, nil
}

// pruneStale removes any queue entry older than staleAfter, logging each
// eviction, and returns the remaining entries in FIFO order.
func pruneStale(sessionDir string, staleAfter time.Duration, logger *planlog.SessionLogger) ([]QueueEntry, error) {
	entries, err := loadQueue(sessionDir)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	fresh := entries[:0:0]
	for _, e := range entries {
		if now.Sub(e.RequestedAt) > staleAfter {
			os.Remove(entryPath(sessionDir, e.ID))
			if logger != nil {
				logger.LogEvent("queue_entry_pruned", map[string]any{"entry_id": e.ID, "agent": e.Agent})
			}
			continue
		}
		fresh = append(fresh, e)
	}
	return fresh, nil
}

// QueueView is the read-side projection of spec.md §4.4's
// queue_status(session_dir, viewer_agent).
type QueueView struct {
	Pending  []QueueEntry `json:"pending"`
	Position *int         `json:"position"`
}

// QueueStatus loads the queue, prunes stale entries, and returns the
// pending list plus the 1-based position of viewerAgent's earliest
// entry, or nil if viewerAgent has none.
func QueueStatus(sessionDir, viewerAgent string) (QueueView, error) {
	entries, err := pruneStale(sessionDir, defaultStaleAfter, nil)
	if err != nil {
		return QueueView{}, err
	}
	view := QueueView{Pending: entries}
	for i, e := range entries {
		if e.Agent == viewerAgent {
			pos := i + 1
			view.Position = &pos
			break
		}
	}
	return view, nil
}

// Head returns the agent identity of the queue's current head, or "" if
// the queue is empty. The queue-stall check in Acquire reads the queue
// directly and does not go through Head.
func Head(sessionDir string) (string, int, error) {
	entries, err := loadQueue(sessionDir)
	if err != nil {
		return "", 0, err
	}
	if len(entries) == 0 {
		return "", 0, nil
	}
	return entries[0].Agent, len(entries), nil
}

const queueStallSignalID = "queue_stall"

// checkQueueStall implements spec.md §4.4's stall escalation: on every
// scan where this caller is not the queue head, it tracks how many
// consecutive scans the same agent has headed the queue. A distinct head
// resets the count; crossing threshold appends a synthetic
// system/queue_stall blocker signal via a one-shot load/modify/save that
// runs outside the lock's critical section (the caller here, by
// construction, is not the head and is not about to acquire anything).
func checkQueueStall(sessionDir string, queue []QueueEntry, threshold int, logger *planlog.SessionLogger) error {
	headAgent := queue[0].Agent
	shouldTrack := len(queue) > 1

	tracker, err := deadlock.Load(sessionDir)
	if err != nil {
		return fmt.Errorf("planlock: load deadlock tracker: %w", err)
	}
	escalated := tracker.RegisterQueueHead(headAgent, shouldTrack, threshold)
	if err := tracker.Persist(sessionDir); err != nil {
		return fmt.Errorf("planlock: persist deadlock tracker: %w", err)
	}
	if !escalated {
		return nil
	}

	if err := emitQueueStallSignal(sessionDir); err != nil {
		return fmt.Errorf("planlock: emit queue stall signal: %w", err)
	}
	if logger != nil {
		logger.LogEvent("queue_stall_escalated", map[string]any{"head_agent": headAgent})
	}
	return nil
}

// emitQueueStallSignal performs the one-shot load/modify/save: it opens
// session state directly (not via Acquire — the caller does not hold,
// and is not waiting to take, the lock for this write) and, unless
// already open, appends a blocker signal and sets now=waiting_on_lock.
// homeDir is deliberately left empty so persist.Save skips the registry
// upsert; a queue stall is session-local bookkeeping, not a change to
// the session's summary fields.
func emitQueueStallSignal(sessionDir string) error {
	s, err := persist.Load(sessionDir)
	if err != nil {
		return err
	}
	if s.SignalByID(queueStallSignalID) == nil {
		s.Signals = append(s.Signals, &planstate.Signal{
			ID:      queueStallSignalID,
			Type:    planstate.SignalSystem,
			Kind:    "queue_stall",
			Level:   planstate.LevelBlocker,
			Open:    true,
			Title:   "Lock queue is stalled",
			Message: "The lock queue's head has not changed across repeated scans",
		})
	}
	id := queueStallSignalID
	s.Now = planstate.Now{Reason: planstate.ReasonWaitingOnLock, SignalID: &id}
	return persist.Save("", sessionDir, s, "queue stall escalated")
}
