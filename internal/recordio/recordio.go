// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recordio reads and writes JSON Lines record streams. Every stage
// of the pipeline consumes and produces one self-contained JSON object per
// line, so stages compose by concatenating or streaming files.
package recordio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxLineCapacity is the longest record line accepted (16 MiB).
const MaxLineCapacity = 16 * 1024 * 1024

// ErrLineTooLong is returned when a line exceeds MaxLineCapacity.
var ErrLineTooLong = errors.New("record line exceeds maximum length")

// Reader streams records of type T from JSON Lines input. Memory use is
// bounded by one line at a time.
//
// Blank lines are skipped. A line that is not valid JSON for T is counted
// and reported through OnMalformed, then skipped; only I/O errors and
// over-long lines stop the stream.
type Reader[T any] struct {
	// OnMalformed, if set, is called for each line that fails to decode.
	OnMalformed func(line int, err error)

	br        *bufio.Reader
	rec       T
	line      int
	offset    int64
	length    int
	next      int64
	malformed int
	err       error
}

// NewReader returns a Reader over r.
func NewReader[T any](r io.Reader) *Reader[T] {
	return &Reader[T]{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next record. It returns false at end of input or
// on error; check Err afterwards.
func (r *Reader[T]) Next() bool {
	if r.err != nil {
		return false
	}
	for {
		data, err := r.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, ErrLineTooLong) {
				r.err = fmt.Errorf("line %d: %w", r.line+1, err)
			} else {
				r.err = fmt.Errorf("reading line %d: %w", r.line+1, err)
			}
			return false
		}
		if len(data) > 0 {
			start := r.next
			r.next += int64(len(data))
			r.line++

			trimmed := bytes.TrimSpace(data)
			if len(trimmed) > 0 {
				var rec T
				if decErr := json.Unmarshal(trimmed, &rec); decErr != nil {
					r.malformed++
					if r.OnMalformed != nil {
						r.OnMalformed(r.line, decErr)
					}
				} else {
					r.rec = rec
					r.offset = start
					r.length = len(data)
					return true
				}
			}
		}
		if err != nil {
			return false
		}
	}
}

// readLine returns the next line including its terminator.
func (r *Reader[T]) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(buf)+len(chunk) > MaxLineCapacity {
			return nil, ErrLineTooLong
		}
		buf = append(buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return buf, err
	}
}

// Record returns the record decoded by the last successful Next.
func (r *Reader[T]) Record() T { return r.rec }

// Line returns the 1-based line number of the current record.
func (r *Reader[T]) Line() int { return r.line }

// Offset returns the byte offset at which the current record's line starts.
func (r *Reader[T]) Offset() int64 { return r.offset }

// Len returns the byte length of the current record's line, including
// its terminator.
func (r *Reader[T]) Len() int { return r.length }

// Malformed returns how many lines failed to decode so far.
func (r *Reader[T]) Malformed() int { return r.malformed }

// Err returns the first I/O error encountered, if any.
func (r *Reader[T]) Err() error { return r.err }

// ReadAll decodes every record in r. Malformed lines are skipped.
func ReadAll[T any](r io.Reader) ([]T, error) {
	rd := NewReader[T](r)
	var out []T
	for rd.Next() {
		out = append(out, rd.Record())
	}
	return out, rd.Err()
}

// Writer writes records of type T as JSON Lines. Output is buffered; call
// Flush when done.
type Writer[T any] struct {
	bw    *bufio.Writer
	enc   *json.Encoder
	count int
}

// NewWriter returns a Writer over w.
func NewWriter[T any](w io.Writer) *Writer[T] {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Writer[T]{bw: bw, enc: enc}
}

// Write encodes rec as one line.
func (w *Writer[T]) Write(rec T) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding record %d: %w", w.count+1, err)
	}
	w.count++
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer[T]) Flush() error {
	return w.bw.Flush()
}

// Count returns the number of records written.
func (w *Writer[T]) Count() int { return w.count }

// Marshal encodes rec the same way Writer does, without the trailing newline.
func Marshal(rec any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
