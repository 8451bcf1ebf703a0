// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package landmark

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/logging"
)

// closeTimeout bounds how long Close waits for the helper's stdout to drain.
const closeTimeout = 2 * time.Second

type frameResult struct {
	frame Frame
	err   error
}

// ProcessSource reads frames from a helper process that prints one JSON
// frame per line on stdout:
//
//	{"t":"2026-01-02T15:04:05.000Z","w":640,"h":480,"face":true,"points":[{"x":0.5,"y":0.4,"z":0}, ...]}
//
// "w" and "h" are required whenever "face" is true because the points are
// normalized to the frame. "t" is optional; a frame without it is stamped
// on arrival. The helper owns the camera and the face-mesh model. When it
// exits on its own with a non-zero status, Next reports that instead of
// io.EOF.
type ProcessSource struct {
	cmd        *exec.Cmd
	ctx        context.Context
	frames     chan frameResult
	done       chan struct{}
	readerDone chan struct{}
	once       sync.Once
	cancel     context.CancelFunc
	now        func() time.Time

	waitOnce sync.Once
	waitErr  error

	mu       sync.Mutex
	stopping bool
	// exitedAlone is set when the helper ended before we asked it to.
	exitedAlone bool
	warnedSize  bool
}

// StartProcess launches argv and begins decoding its output.
func StartProcess(ctx context.Context, argv []string) (*ProcessSource, error) {
	if len(argv) == 0 {
		return nil, errors.New("landmarks.command is empty")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// Close the pipes if a grandchild keeps stdout open after the kill.
	cmd.WaitDelay = time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("helper stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start helper %q: %w", argv[0], err)
	}
	logging.Infof("landmark helper started: %s (pid %d)", argv[0], cmd.Process.Pid)
	s := newSource(ctx, cancel)
	s.cmd = cmd
	go s.read(stdout)
	return s, nil
}

// NewStreamSource decodes JSON lines from r. It is the reading half of
// ProcessSource and is useful when frames arrive on a pipe or socket.
func NewStreamSource(r io.Reader) *ProcessSource {
	s := newSource(context.Background(), func() {})
	go s.read(r)
	return s
}

func newSource(ctx context.Context, cancel context.CancelFunc) *ProcessSource {
	return &ProcessSource{
		ctx:        ctx,
		frames:     make(chan frameResult, 4),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		cancel:     cancel,
		now:        time.Now,
	}
}

func (s *ProcessSource) read(r io.Reader) {
	defer close(s.readerDone)
	defer close(s.frames)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		f, ok := s.decode(line)
		if !ok {
			continue
		}
		if !s.send(frameResult{frame: f}) {
			return
		}
	}

	err := sc.Err()
	if s.cmd != nil {
		// Wait only after stdout is drained.
		waitErr := s.reap()
		if !s.stopRequested() {
			s.mu.Lock()
			s.exitedAlone = true
			s.mu.Unlock()
			if waitErr != nil && err == nil {
				err = fmt.Errorf("landmark helper exited: %w", waitErr)
			}
		}
	}
	if err == nil {
		err = io.EOF
	}
	s.send(frameResult{err: err})
}

// decode parses one helper line. Lines that cannot drive the tracker are
// logged and skipped.
func (s *ProcessSource) decode(line []byte) (Frame, bool) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		logging.Debugf("landmark helper: skipping malformed line: %v", err)
		return Frame{}, false
	}
	if err := f.Validate(); err != nil {
		s.mu.Lock()
		first := !s.warnedSize
		s.warnedSize = true
		s.mu.Unlock()
		if first {
			logging.Warnf("landmark helper: skipping frames: %v (\"w\" and \"h\" are required)", err)
		} else {
			logging.Debugf("landmark helper: skipping frame: %v", err)
		}
		return Frame{}, false
	}
	if f.Time.IsZero() {
		f.Time = s.now()
	}
	if f.Face && len(f.Points) == 0 {
		logging.Debugf("landmark helper: frame reports a face without points, treating it as no face")
		f.Face = false
	}
	return f, true
}

func (s *ProcessSource) send(res frameResult) bool {
	select {
	case s.frames <- res:
		return true
	case <-s.done:
		return false
	}
}

func (s *ProcessSource) reap() error {
	s.waitOnce.Do(func() { s.waitErr = s.cmd.Wait() })
	return s.waitErr
}

func (s *ProcessSource) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping || s.ctx.Err() != nil
}

// Next blocks until the helper emits a frame.
func (s *ProcessSource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case res, ok := <-s.frames:
		if !ok {
			return Frame{}, io.EOF
		}
		return res.frame, res.err
	}
}

// Close stops the helper and waits for it to exit. The exit status is
// returned unless the helper was still running when Close killed it.
func (s *ProcessSource) Close() error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	s.cancel()
	if s.cmd == nil {
		return nil
	}

	t := time.NewTimer(closeTimeout)
	select {
	case <-s.readerDone:
	case <-t.C:
		logging.Warnf("landmark helper did not close its output in %s", closeTimeout)
	}
	t.Stop()

	err := s.reap()
	s.mu.Lock()
	alone := s.exitedAlone
	s.mu.Unlock()
	var exitErr *exec.ExitError
	if !alone && (errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay)) {
		// killed by our own cancel
		return nil
	}
	return err
}
