package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageSize bounds one incoming message; tool calls may carry
// large contexts
const DefaultMaxMessageSize = 16 * 1024 * 1024

const readBufferSize = 64 * 1024

type lineResult struct {
	line    []byte
	tooLong bool
	err     error
}

// Serve reads newline-delimited JSON-RPC messages from in and writes one
// response line per request to out. Messages are handled one at a time.
// Serve returns nil at end of input and ctx.Err() when ctx is cancelled.
// Calls already in flight are not cancelled with ctx.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan lineResult)
	done := make(chan struct{})
	defer close(done)

	go readLines(in, s.maxMessageSize, lines, done)

	callCtx := context.WithoutCancel(ctx)
	writer := bufio.NewWriter(out)

	s.logger.Info("serving", "protocol", ProtocolVersion)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down", "reason", ctx.Err())
			return ctx.Err()
		case next, ok := <-lines:
			if !ok {
				s.logger.Info("input closed")
				return nil
			}
			switch {
			case next.err != nil:
				// An unreadable input is treated as its end
				s.logger.Error("failed to read input", "error", next.err)
			case next.tooLong:
				s.logger.Error("message too large, skipped", "limit_bytes", s.maxMessageSize)
				s.record("", "oversized")
			default:
				if err := s.handleLine(callCtx, next.line, writer); err != nil {
					return err
				}
			}
		}
	}
}

// readLines feeds lines to the loop so that the loop can observe
// cancellation while the reader is blocked
func readLines(in io.Reader, limit int, lines chan<- lineResult, done <-chan struct{}) {
	defer close(lines)

	send := func(next lineResult) bool {
		select {
		case lines <- next:
			return true
		case <-done:
			return false
		}
	}

	reader := bufio.NewReaderSize(in, readBufferSize)
	for {
		line, tooLong, err := readLine(reader, limit)
		if tooLong || len(line) > 0 {
			if !send(lineResult{line: line, tooLong: tooLong}) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				send(lineResult{err: err})
			}
			return
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed to its end and reported with tooLong set and no content.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			// two bytes of slack for a "\r\n" terminator
			if len(line) > limit+2 {
				tooLong, line = true, nil
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) > limit {
			tooLong, line = true, nil
		}
		return line, tooLong, readErr
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte, w *bufio.Writer) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		s.logger.Error("malformed message", "error", err)
		s.record("", "malformed")
		return nil
	}

	resp := s.Handle(ctx, &msg)
	if resp == nil {
		return nil
	}
	return writeResponse(w, resp)
}

func writeResponse(w *bufio.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}
