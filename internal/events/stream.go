package events

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

const maxLineSize = 4 << 20 // final results can be large

// Reader parses a text/event-stream body into Events.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next event in the stream. Events with names outside the
// union are logged and skipped. At the end of the stream Next returns
// io.EOF; a trailing event without its blank line is still delivered.
func (r *Reader) Next() (Event, error) {
	var (
		name string
		data []string
		seen bool
	)
	for {
		line, ok, err := r.line()
		if err != nil {
			return nil, err
		}
		if !ok || line == "" {
			if !seen {
				if !ok {
					return nil, io.EOF
				}
				continue
			}
			ev, err := Decode(name, []byte(strings.Join(data, "\n")))
			if errors.Is(err, ErrUnknownEvent) {
				log.Printf("[Events] skipping unknown event %q", name)
				name, data, seen = "", nil, false
				if !ok {
					return nil, io.EOF
				}
				continue
			}
			return ev, err
		}

		if strings.HasPrefix(line, ":") {
			continue // comment / keep-alive
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
			seen = true
		case "data":
			data = append(data, value)
			seen = true
		}
	}
}

func (r *Reader) line() (string, bool, error) {
	if r.sc.Scan() {
		return strings.TrimSuffix(r.sc.Text(), "\r"), true, nil
	}
	if err := r.sc.Err(); err != nil {
		return "", false, fmt.Errorf("events: read stream: %w", err)
	}
	return "", false, nil
}

// Writer emits Events in text/event-stream framing.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter writes to w, flushing after every event when w is an
// http.Flusher.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// NewResponseWriter prepares SSE headers on w. It returns nil if w cannot
// stream.
func NewResponseWriter(w http.ResponseWriter) *Writer {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return NewWriter(w)
}

// Send writes one event.
func (s *Writer) Send(ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return s.SendRaw(ev.Name(), data)
}

// SendRaw writes an event with arbitrary name and data. Multi-line data is
// split over several data lines.
func (s *Writer) SendRaw(name string, data []byte) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", name)
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("events: write %q: %w", name, err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
