package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/deadlock"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planlock"
	"github.com/joelklabo/planloop/internal/planlog"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/watch"
	"github.com/spf13/cobra"
)

var (
	debugSessionFlag string
	debugWatchFlag   bool
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Print a diagnostic snapshot, or start the watch hub",
	RunE:  runDebug,
}

func init() {
	debugCmd.Flags().StringVar(&debugSessionFlag, "session", "", "Session id (defaults to current_session)")
	debugCmd.Flags().BoolVar(&debugWatchFlag, "watch", false, "Start the watch hub and block until SIGINT")
}

const logTailLines = 20
const shutdownGrace = 5 * time.Second

// DebugResponse is the shape of `debug`'s JSON output.
type DebugResponse struct {
	Session       string          `json:"session"`
	Now           planstate.Now   `json:"now"`
	LockInfo      *planlock.Info  `json:"lock_info"`
	Deadlock      *deadlock.Tracker `json:"deadlock"`
	RecentLogTail []string        `json:"recent_log_tail"`
}

func runDebug(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(home.ConfigPath(homeDir))
	if err != nil {
		return err
	}

	if debugWatchFlag {
		return runWatchHub(cfg)
	}

	sessionID, err := resolveSession(homeDir, debugSessionFlag)
	if err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("no session specified and no current session set")
	}
	sessionDir := home.SessionDir(homeDir, sessionID)

	s, err := persist.Load(sessionDir)
	if err != nil {
		return err
	}

	_, lockInfo, err := planlock.Status(sessionDir)
	if err != nil {
		return err
	}

	tracker, err := deadlock.Load(sessionDir)
	if err != nil {
		return err
	}

	tail, err := tailLines(planlog.JSONLPath(sessionDir), logTailLines)
	if err != nil {
		return err
	}

	return emitJSON(DebugResponse{
		Session:       s.Session,
		Now:           s.Now,
		LockInfo:      lockInfo,
		Deadlock:      tracker,
		RecentLogTail: tail,
	}, false)
}

// runWatchHub binds the watch Hub to config.yml's watch.host/port and
// blocks until SIGINT/SIGTERM, per SPEC_FULL.md §D: only `debug --watch`
// ever starts the hub; `status --watch` merely notifies one that is
// already running.
func runWatchHub(cfg *config.Config) error {
	if !cfg.Watch.Enabled {
		return fmt.Errorf("watch hub is disabled in config.yml (watch.enabled: false)")
	}

	hub := watch.NewHub(cfg.Watch.MaxConnections)
	addr := fmt.Sprintf("%s:%d", cfg.Watch.Host, cfg.Watch.Port)

	server := &http.Server{Addr: addr, Handler: hub}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("watch hub: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// tailLines returns up to n trailing lines of the file at path, or an
// empty slice if the file does not exist yet (no events logged).
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
