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
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Recorder writes frames as zstd-compressed JSON lines.
type Recorder struct {
	closer io.Closer
	zw     *zstd.Encoder
	enc    *json.Encoder
	count  int
}

// NewRecorder wraps w. Close flushes the compressed stream but does not close w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return &Recorder{zw: zw, enc: json.NewEncoder(zw)}, nil
}

// CreateRecording creates (or truncates) path and returns a Recorder that
// closes the file on Close.
func CreateRecording(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Write appends one frame.
func (r *Recorder) Write(f Frame) error {
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	r.count++
	return nil
}

// Count is the number of frames written so far.
func (r *Recorder) Count() int { return r.count }

// Close flushes the encoder and closes the underlying file if the recorder
// owns one.
func (r *Recorder) Close() error {
	err := r.zw.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReplaySource plays back a recording.
type ReplaySource struct {
	closer  io.Closer
	zr      *zstd.Decoder
	scanner *bufio.Scanner
	paced   bool
	last    time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewReplaySource reads a recording from r. With paced set, Next waits the
// recorded inter-frame delay before returning each frame.
func NewReplaySource(r io.Reader, paced bool) (*ReplaySource, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ReplaySource{zr: zr, scanner: sc, paced: paced, sleep: sleepCtx}, nil
}

// OpenReplay opens a recording file.
func OpenReplay(path string, paced bool) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := NewReplaySource(f, paced)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// Next returns the next recorded frame or io.EOF at the end of the stream.
func (s *ReplaySource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return Frame{}, fmt.Errorf("read recording: %w", err)
		}
		return Frame{}, io.EOF
	}
	var f Frame
	if err := json.Unmarshal(s.scanner.Bytes(), &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if s.paced && !s.last.IsZero() && f.Time.After(s.last) {
		if err := s.sleep(ctx, f.Time.Sub(s.last)); err != nil {
			return Frame{}, err
		}
	}
	s.last = f.Time
	return f, nil
}

// Close releases the decoder and the file, if any.
func (s *ReplaySource) Close() error {
	s.zr.Close()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsEnd reports whether err marks the normal end of a finite source.
func IsEnd(err error) bool {
	return errors.Is(err, io.EOF)
}
