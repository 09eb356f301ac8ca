package runexec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/ledger"
	"github.com/hochfrequenz/taskmaster-longrun/internal/sentinel"
)

const maxBufferChars = 200_000

// ChunkFunc is called once per line received on either stream, after it
// has been logged and buffered — used to forward raw output to observers.
type ChunkFunc func(stream string, line string)

// Execute spawns the configured executable for task's attempt, tails its
// output, enforces the idle/hard/result-grace timers, and returns the
// collected ExecOutcome. A non-nil error return means the attempt could
// not even be started (e.g. the log file could not be created); executor
// failures themselves are reported through the ExecOutcome, per spec
// §4.D/§4.E's all-paths-produce-an-outcome contract.
func Execute(ctx context.Context, task *domain.Task, attempt int, paths domain.SessionPaths, opts Options, prompt string, onChunk ChunkFunc) (domain.ExecOutcome, error) {
	if err := os.MkdirAll(paths.LogsDir, 0755); err != nil {
		return domain.ExecOutcome{}, err
	}
	logPath := filepath.Join(paths.LogsDir, ledger.LogFileName(task.ID, attempt))
	logFile, err := os.Create(logPath)
	if err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("creating attempt log: %w", err)
	}
	defer logFile.Close()

	executionID := uuid.New().String()
	fmt.Fprintf(logFile, "[execution-id] %s\n", executionID)

	args := BuildArgs(opts, prompt)
	cmd := exec.Command(executableOr(opts), args...)
	cmd.Dir = paths.ProjectRoot

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.ExecOutcome{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return domain.ExecOutcome{}, err
	}

	term := &terminator{}
	state := &runState{logFile: logFile, onChunk: onChunk}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.ExecOutcome{}, fmt.Errorf("starting %s: %w", executableOr(opts), err)
	}

	var waitErr error
	waitDone := make(chan struct{})
	go func() {
		waitErr = cmd.Wait()
		close(waitDone)
	}()
	term.attach(cmd, waitDone, state)

	go func() {
		select {
		case <-ctx.Done():
			term.fire(domain.TimeoutNone, nil, "context canceled")
		case <-waitDone:
		}
	}()

	idleMs := clampTimerMs(opts.IdleTimeoutMs)
	hardMs := clampTimerMs(opts.HardTimeoutMs)
	terminateOnResult := boolOr(opts.TerminateOnResult, true)

	var idleTimer, hardTimer *time.Timer
	if idleMs > 0 {
		idleTimer = time.AfterFunc(time.Duration(idleMs)*time.Millisecond, func() {
			bound := idleMs
			term.fire(domain.TimeoutIdle, &bound, fmt.Sprintf("idle timeout after %dms", idleMs))
		})
	}
	if hardMs > 0 {
		hardTimer = time.AfterFunc(time.Duration(hardMs)*time.Millisecond, func() {
			bound := hardMs
			term.fire(domain.TimeoutHard, &bound, fmt.Sprintf("hard timeout after %dms", hardMs))
		})
	}
	resetIdle := func() {
		if idleTimer != nil {
			idleTimer.Reset(time.Duration(idleMs) * time.Millisecond)
		}
	}

	if terminateOnResult {
		state.onFirstResult = func() {
			time.AfterFunc(resultGraceMs*time.Millisecond, func() {
				term.fire(domain.TimeoutNone, nil, "result grace period elapsed")
			})
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go state.stream("stdout", stdout, resetIdle, &wg)
	go state.stream("stderr", stderr, resetIdle, &wg)
	wg.Wait()

	<-waitDone

	if idleTimer != nil {
		idleTimer.Stop()
	}
	if hardTimer != nil {
		hardTimer.Stop()
	}

	kind, bound := term.outcome()
	outcome := domain.ExecOutcome{
		ElapsedMs:      time.Since(start).Milliseconds(),
		LogPath:        logPath,
		TimedOut:       kind != domain.TimeoutNone,
		TimeoutKind:    kind,
		TimeoutBoundMs: bound,
		Result:         state.result(),
	}

	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		outcome.ExitCode = &code
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			sig := status.Signal().String()
			outcome.Signal = &sig
		}
	} else if waitErr == nil {
		code := 0
		outcome.ExitCode = &code
	}

	return outcome, nil
}

// terminator implements the idempotent soft-stop→5s-grace→forced-kill
// state machine from spec §4.D.
type terminator struct {
	once     sync.Once
	mu       sync.Mutex
	kind     domain.TimeoutKind
	bound    *int64
	cmd      *exec.Cmd
	waitDone <-chan struct{}
	state    *runState
}

func (t *terminator) attach(cmd *exec.Cmd, waitDone <-chan struct{}, state *runState) {
	t.cmd = cmd
	t.waitDone = waitDone
	t.state = state
}

func (t *terminator) fire(kind domain.TimeoutKind, bound *int64, reason string) {
	t.once.Do(func() {
		t.mu.Lock()
		t.kind = kind
		t.bound = bound
		t.mu.Unlock()

		t.state.writeMarker(reason)
		if t.cmd.Process != nil {
			t.cmd.Process.Signal(syscall.SIGTERM)
		}
		go func() {
			select {
			case <-t.waitDone:
			case <-time.After(forceKillGraceMs * time.Millisecond):
				t.state.writeMarker("force-kill: process did not exit within grace period")
				if t.cmd.Process != nil {
					t.cmd.Process.Kill()
				}
			}
		}()
	})
}

func (t *terminator) outcome() (domain.TimeoutKind, *int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kind, t.bound
}

// runState accumulates the rolling output buffer, writes per-attempt log
// lines, and tracks the first successfully parsed sentinel.
type runState struct {
	mu            sync.Mutex
	buffer        []byte
	logFile       *os.File
	onChunk       ChunkFunc
	parsed        *domain.ParsedResult
	onFirstResult func()
}

func (s *runState) stream(name string, r io.Reader, resetIdle func(), wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		resetIdle()
		s.handleLine(name, line)
	}
}

func (s *runState) handleLine(stream, line string) {
	if stream == "stdout" {
		fmt.Fprintln(os.Stdout, line)
	} else {
		fmt.Fprintln(os.Stderr, line)
	}

	s.mu.Lock()
	if s.logFile != nil {
		fmt.Fprintln(s.logFile, line)
		s.logFile.Sync()
	}
	s.buffer = append(s.buffer, []byte(line)...)
	s.buffer = append(s.buffer, '\n')
	if len(s.buffer) > maxBufferChars {
		s.buffer = s.buffer[len(s.buffer)-maxBufferChars:]
	}
	alreadyParsed := s.parsed != nil
	bufSnapshot := string(s.buffer)
	s.mu.Unlock()

	if s.onChunk != nil {
		s.onChunk(stream, line)
	}

	if alreadyParsed {
		return
	}
	result := sentinel.Extract(bufSnapshot)
	if result == nil {
		return
	}

	s.mu.Lock()
	firstTime := s.parsed == nil
	if firstTime {
		s.parsed = result
	}
	s.mu.Unlock()

	if firstTime && s.onFirstResult != nil {
		s.onFirstResult()
	}
}

func (s *runState) result() *domain.ParsedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsed
}

func (s *runState) writeMarker(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logFile != nil {
		fmt.Fprintf(s.logFile, "[terminate] %s\n", reason)
		s.logFile.Sync()
	}
}
