package table

// streaming.go provides the reader wrappers applied to a source before CSV
// parsing:
//
//   - skipBOM: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?' as they stream by
//   - sizeLimitReader: fails with ErrFileTooLarge past the configured limit
//
// Use wrapSource to apply all of them in the right order.

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned when a source exceeds ReadOptions.MaxBytes.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM consumes a UTF-8 BOM at the start of br, if there is one.
func skipBOM(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if len(head) == len(utf8BOM) && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		_, err = br.Discard(len(utf8BOM))
		return err
	}
	return nil
}

// utf8Sanitizer rewrites invalid UTF-8 bytes to '?' on the fly.
// A multi-byte rune split across two reads is held in pending until the
// rest of it arrives.
type utf8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns how many bytes are ready.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// sizeLimitReader returns ErrFileTooLarge once more than limit bytes have
// been read. A limit of zero or less disables the check.
type sizeLimitReader struct {
	reader io.Reader
	limit  int64
	read   int64
}

func (r *sizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.limit > 0 && r.read > r.limit {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, r.limit)
	}
	return n, err
}

// wrapSource applies size limiting, BOM skipping and UTF-8 sanitisation.
// Size is checked on the raw bytes, before any rewriting.
func wrapSource(r io.Reader, maxBytes int64) (*bufio.Reader, error) {
	limited := &sizeLimitReader{reader: r, limit: maxBytes}
	raw := bufio.NewReader(limited)
	if err := skipBOM(raw); err != nil {
		return nil, err
	}
	return bufio.NewReaderSize(newUTF8Sanitizer(raw), maxSniffBytes), nil
}
