package main

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

// Expected transcript fragments, spelled out rather than reusing the
// package variables so a change there shows up here.
const (
	wantCR  = "\x1b[2m\\r\x1b[22m"
	wantLF  = "\x1b[2m\\n\x1b[22m\n"
	wantESC = "\x1b[2m^\x1b[22m"
)

func transcodeString(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	n, err := NewTranscoder(&out).Transcode([]byte(input))
	if err != nil {
		t.Fatalf("Transcode(%q) error: %v", input, err)
	}
	if n != out.Len() {
		t.Errorf("Transcode(%q) reported %d bytes, sink got %d", input, n, out.Len())
	}
	return out.String()
}

// TestTranscode pins the transcript form of each kind of input
func TestTranscode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain_text",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "carriage_return",
			input: "\r",
			want:  wantCR,
		},
		{
			name:  "line_feed",
			input: "\n",
			want:  wantLF,
		},
		{
			name:  "crlf_line",
			input: "ok\r\n",
			want:  "ok" + wantCR + wantLF,
		},
		{
			name:  "erase_between_text",
			input: "A\x1b[2JB",
			want:  "A\x1b[31m^[2J\x1b[39mB",
		},
		{
			name:  "erase_line",
			input: "\x1b[0K",
			want:  "\x1b[31m^[0K\x1b[39m",
		},
		{
			name:  "style",
			input: "\x1b[1;32mgreen",
			want:  "\x1b[32m^[1;32m\x1b[39mgreen",
		},
		{
			name:  "margin",
			input: "\x1b[1;24r",
			want:  "\x1b[33m^[1;24r\x1b[39m",
		},
		{
			name:  "scroll",
			input: "\x1b[3S",
			want:  "\x1b[34m^[3S\x1b[39m",
		},
		{
			name:  "movement",
			input: "\x1b[10;5H",
			want:  "\x1b[36m^[10;5H\x1b[39m",
		},
		{
			name:  "unclassified_private_mode",
			input: "\x1b[?25h",
			want:  "\x1b[2m^[?25h\x1b[22m",
		},
		{
			name:  "esc_last_byte",
			input: "ab\x1b",
			want:  "ab" + wantESC,
		},
		{
			name:  "esc_one_byte_left",
			input: "\x1b[",
			want:  wantESC + "[",
		},
		{
			name:  "incomplete_sequence_rescanned_as_text",
			input: "x\x1b[12",
			want:  "x" + wantESC + "[12",
		},
		{
			name:  "adjacent_sequences_on_own_lines",
			input: "\x1b[H\x1b[2J",
			want:  "\x1b[36m^[H\x1b[39m\n\x1b[31m^[2J\x1b[39m",
		},
		{
			name:  "three_adjacent_sequences",
			input: "\x1b[H\x1b[2J\x1b[0m",
			want:  "\x1b[36m^[H\x1b[39m\n\x1b[31m^[2J\x1b[39m\n\x1b[32m^[0m\x1b[39m",
		},
		{
			name:  "no_extra_newline_after_line_feed",
			input: "\x1b[H\n\x1b[K",
			want:  "\x1b[36m^[H\x1b[39m" + wantLF + "\x1b[31m^[K\x1b[39m",
		},
		{
			name:  "text_separates_sequences",
			input: "\x1b[1mbold\x1b[0m",
			want:  "\x1b[32m^[1m\x1b[39mbold\x1b[32m^[0m\x1b[39m",
		},
		{
			// Any printable byte may follow ESC, so a charset
			// designation is annotated by its last byte.
			name:  "non_csi_escape",
			input: "\x1b(B",
			want:  "\x1b[36m^(B\x1b[39m",
		},
		{
			name:  "keypad_mode_then_sequence",
			input: "\x1b=\x1b[H",
			want:  wantESC + "=\x1b[36m^[H\x1b[39m",
		},
		{
			name:  "lone_esc_then_sequence",
			input: "\x1b\x1b[H",
			want:  wantESC + "\n\x1b[36m^[H\x1b[39m",
		},
		{
			name:  "charset_cut_by_sequence",
			input: "\x1b(\x1b[31m",
			want:  wantESC + "(\x1b[32m^[31m\x1b[39m",
		},
		{
			name:  "sequence_cut_by_line_end",
			input: "\x1b[1\r\n",
			want:  wantESC + "[1" + wantCR + wantLF,
		},
		{
			name:  "sequence_cut_by_utf8",
			input: "\x1b[é",
			want:  wantESC + "[é",
		},
		{
			name:  "incomplete_after_complete",
			input: "\x1b[m\x1b",
			want:  "\x1b[32m^[m\x1b[39m\n" + wantESC,
		},
		{
			name:  "utf8_passthrough",
			input: "héllo ✓",
			want:  "héllo ✓",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transcodeString(t, tt.input); got != tt.want {
				t.Errorf("Transcode(%q)\n got %q\nwant %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestTranscodePlainIdentity verifies that input without ESC, CR or LF comes
// out unchanged
func TestTranscodePlainIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		chunk := make([]byte, rng.Intn(DefaultChunkSize)+1)
		for j := range chunk {
			b := byte(rng.Intn(256))
			for isSpecial(b) {
				b = byte(rng.Intn(256))
			}
			chunk[j] = b
		}

		var out bytes.Buffer
		n, err := NewTranscoder(&out).Transcode(chunk)
		if err != nil {
			t.Fatalf("Transcode error: %v", err)
		}
		if n != len(chunk) || !bytes.Equal(out.Bytes(), chunk) {
			t.Fatalf("plain chunk %d changed: got %q, want %q", i, out.Bytes(), chunk)
		}
	}
}

// TestTranscodeNoRawCarriageReturn verifies the transcript never contains a
// real CR, whatever the input
func TestTranscodeNoRawCarriageReturn(t *testing.T) {
	got := transcodeString(t, "a\rb\r\r\nc\r")
	if bytes.IndexByte([]byte(got), '\r') >= 0 {
		t.Errorf("transcript contains a raw CR: %q", got)
	}
}

// TestTranscodeLineAnchorAcrossChunks verifies that line anchoring follows
// the transcript, not the chunk
func TestTranscodeLineAnchorAcrossChunks(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{
			name:   "sequence_then_sequence",
			chunks: []string{"\x1b[H", "\x1b[K"},
			want:   "\x1b[36m^[H\x1b[39m\n\x1b[31m^[K\x1b[39m",
		},
		{
			name:   "text_then_sequence",
			chunks: []string{"abc", "\x1b[K"},
			want:   "abc\x1b[31m^[K\x1b[39m",
		},
		{
			name:   "split_sequence",
			chunks: []string{"a\x1b", "[2J"},
			want:   "a" + wantESC + "[2J",
		},
		{
			name:   "split_then_sequence",
			chunks: []string{"\x1b", "\x1b[m"},
			want:   wantESC + "\n\x1b[32m^[m\x1b[39m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tr := NewTranscoder(&out)
			for _, chunk := range tt.chunks {
				if _, err := tr.Transcode([]byte(chunk)); err != nil {
					t.Fatalf("Transcode(%q) error: %v", chunk, err)
				}
			}
			if got := out.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestTranscodeReadable verifies that with the annotation colors removed the
// transcript shows the sequences as caret text
func TestTranscodeReadable(t *testing.T) {
	got := ansi.Strip(transcodeString(t, "A\x1b[2JB\x1b[?25h\r\n"))
	want := "A^[2JB^[?25h\\r\\n\n"
	if got != want {
		t.Errorf("stripped transcript = %q, want %q", got, want)
	}
}

// TestTranscodeRefeed feeds a transcript back through the transcoder. The
// annotations contain ESC themselves, so they get annotated again; the
// result is pinned here rather than assumed.
func TestTranscodeRefeed(t *testing.T) {
	first := transcodeString(t, "\x1b[2J")
	second := transcodeString(t, first)

	want := "\x1b[32m^[31m\x1b[39m^[2J\x1b[32m^[39m\x1b[39m"
	if second != want {
		t.Errorf("re-fed transcript\n got %q\nwant %q", second, want)
	}

	// And a third round must not fail either.
	transcodeString(t, second)
}

// failingWriter fails on the failAt'th call to Write
type failingWriter struct {
	failAt int
	calls  int
	buf    bytes.Buffer
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.calls == w.failAt {
		return 0, errDiskFull
	}
	return w.buf.Write(p)
}

// TestTranscodeStopsOnWriteError verifies that a failed write stops the
// scan and the bytes already written are reported
func TestTranscodeStopsOnWriteError(t *testing.T) {
	// Writes: "ab", CR marker, "cd", CR marker, "ef"
	w := &failingWriter{failAt: 3}
	n, err := NewTranscoder(w).Transcode([]byte("ab\rcd\ref"))

	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Transcode error = %v, want %v", err, errDiskFull)
	}
	if w.calls != 3 {
		t.Errorf("sink called %d times, want 3 (no writes after the failure)", w.calls)
	}
	want := "ab" + wantCR
	if n != len(want) || w.buf.String() != want {
		t.Errorf("Transcode wrote %d bytes %q, want %d bytes %q", n, w.buf.String(), len(want), want)
	}
}

// TestTranscodeStopsOnNewlineWriteError covers a failure on the newline
// written before an annotation
func TestTranscodeStopsOnNewlineWriteError(t *testing.T) {
	w := &failingWriter{failAt: 2}
	n, err := NewTranscoder(w).Transcode([]byte("\x1b[H\x1b[K"))

	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Transcode error = %v, want %v", err, errDiskFull)
	}
	if w.calls != 2 {
		t.Errorf("sink called %d times, want 2", w.calls)
	}
	if n != len("\x1b[36m^[H\x1b[39m") {
		t.Errorf("Transcode reported %d bytes", n)
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

// TestTranscodeShortWrite verifies a short write is reported as an error
func TestTranscodeShortWrite(t *testing.T) {
	n, err := NewTranscoder(shortWriter{}).Transcode([]byte("abcd\r"))
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("Transcode error = %v, want io.ErrShortWrite", err)
	}
	if n != 2 {
		t.Errorf("Transcode reported %d bytes, want 2", n)
	}
}
