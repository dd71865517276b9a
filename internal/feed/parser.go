package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Stream yields product records from a feed document one at a time, in the
// bufio.Scanner idiom:
//
//	stream, err := feed.Open(path, logger)
//	...
//	for stream.Next() {
//	    rec := stream.Record()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
//
// The document is `{"products": [ ... ]}` or a bare array. Memory use is
// bounded by the largest single object, never the document size. Objects that
// fail to decode even after corruption cleanup are skipped and counted; only
// an unreadable source is fatal. A Stream is not restartable.
type Stream struct {
	r    *bufio.Reader
	file *os.File
	log  *logrus.Logger

	rec     *Record
	err     error
	inArray bool
	buf     bytes.Buffer
	depth   int

	yielded int
	skipped int
	maxBuf  int
}

// Open opens the feed file at path. A missing or unreadable file is an
// immediate error, before any record is yielded.
func Open(path string, log *logrus.Logger) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed file %s: %w", path, err)
	}
	s := NewStream(f, log)
	s.file = f
	return s, nil
}

// NewStream wraps an already-open reader.
func NewStream(r io.Reader, log *logrus.Logger) *Stream {
	if log == nil {
		log = logrus.New()
	}
	return &Stream{r: bufio.NewReader(r), log: log}
}

// Close releases the underlying file, if the stream owns one.
func (s *Stream) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Next advances to the next decodable record. It returns false at end of
// input or on a fatal read error; check Err to tell the two apart.
func (s *Stream) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.inArray {
		if err := s.seekArrayStart(); err != nil {
			s.err = err
			return false
		}
		s.inArray = true
	}

	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("read feed: %w", err)
			return false
		}

		// Illegal ASCII control characters are corruption artifacts;
		// drop them before they reach the decoder.
		if c < 0x20 && c != '\t' && c != '\r' && c != '\n' {
			continue
		}

		switch {
		case c == '{':
			s.depth++
			s.buf.WriteByte(c)
		case c == '}' && s.depth > 0:
			s.buf.WriteByte(c)
			s.depth--
			if s.depth == 0 {
				if s.buf.Len() > s.maxBuf {
					s.maxBuf = s.buf.Len()
				}
				rec, ok := s.finish()
				s.buf.Reset()
				if ok {
					s.rec = rec
					s.yielded++
					return true
				}
			}
		default:
			if s.depth > 0 {
				s.buf.WriteByte(c)
			}
			// Bytes between objects (commas, whitespace, the closing
			// bracket) are not buffered.
		}
	}
}

// Record returns the record produced by the last successful call to Next.
func (s *Stream) Record() *Record {
	return s.rec
}

// Err returns the first fatal error encountered, if any. Skipped records are
// not errors.
func (s *Stream) Err() error {
	return s.err
}

// Yielded reports how many records have been produced so far.
func (s *Stream) Yielded() int {
	return s.yielded
}

// Skipped reports how many objects were dropped as undecodable.
func (s *Stream) Skipped() int {
	return s.skipped
}

// MaxBuffered reports the largest single-object buffer seen, in bytes.
func (s *Stream) MaxBuffered() int {
	return s.maxBuf
}

// seekArrayStart consumes input up to and including the opening bracket of
// the products array.
func (s *Stream) seekArrayStart() error {
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			return fmt.Errorf("could not find the start of the products array")
		}
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}
		if c == '[' {
			return nil
		}
	}
}

// asciiSanitizer approximates a lossy iconv round-trip: decompose, drop
// combining marks, drop whatever still is not 7-bit safe. Invalid UTF-8
// sequences decode as U+FFFD and are dropped with the rest.
var asciiSanitizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// finish cleans and decodes the buffered object text. A failure here skips
// the object; it never aborts the stream.
func (s *Stream) finish() (*Record, bool) {
	cleaned, _, err := transform.Bytes(asciiSanitizer, s.buf.Bytes())
	if err != nil || len(bytes.TrimSpace(cleaned)) == 0 {
		s.skipped++
		s.log.WithFields(logrus.Fields{
			"object": s.yielded + s.skipped,
		}).Warn("Feed object emptied by cleanup, skipping")
		return nil, false
	}

	rec, err := decodeRecord(cleaned)
	if err != nil {
		s.skipped++
		s.log.WithFields(logrus.Fields{
			"object": s.yielded + s.skipped,
			"error":  err.Error(),
		}).Warn("Failed to decode feed object, skipping")
		return nil, false
	}
	return rec, true
}
