package main

import (
	"io"
	"strconv"
)

const (
	esc = 0x1b
	cr  = '\r'
	lf  = '\n'
)

// Fixed transcript fragments. Dim is SGR 2 and is closed with SGR 22
// (normal intensity) so it doesn't clobber colors set by the program's own
// output further down the transcript.
var (
	dimOn       = []byte("\x1b[2m")
	dimOff      = []byte("\x1b[22m")
	colorOff    = []byte("\x1b[39m")
	crMarker    = []byte("\x1b[2m\\r\x1b[22m")
	lfMarker    = []byte("\x1b[2m\\n\x1b[22m\n")
	escMarker   = []byte("\x1b[2m^\x1b[22m")
	lineBreak   = []byte("\n")
	caret       = []byte("^")
	colorPrefix = []byte("\x1b[3")
)

// Transcoder rewrites raw terminal output into the transcript format:
// CR and LF become visible dim markers, and every escape sequence becomes a
// caret followed by the rest of the sequence, colored by its Category.
//
// A Transcoder belongs to a single output stream. Chunks must be passed to
// Transcode in the order they were read; it is not safe for concurrent use.
type Transcoder struct {
	sink io.Writer

	// afterAnnotation is set when the last thing written was an escape
	// annotation, so the next annotation starts on a fresh line.
	afterAnnotation bool

	scratch []byte
}

// NewTranscoder returns a Transcoder that appends to sink.
func NewTranscoder(sink io.Writer) *Transcoder {
	return &Transcoder{sink: sink}
}

// Transcode writes the transcript form of chunk to the sink and returns
// the number of bytes written. It stops at the first failed write and
// returns what was written up to that point along with the error.
//
// Escape sequences cut off by the end of chunk are not carried over to the
// next call: the ESC is annotated with a bare caret and the bytes after it
// are treated as ordinary output. A sequence interrupted by a byte that
// cannot occur inside one (another ESC, CR, LF) is handled the same way.
func (t *Transcoder) Transcode(chunk []byte) (int, error) {
	total := 0
	size := len(chunk)

	for i := 0; i < size; {
		var (
			n   int
			err error
		)

		switch chunk[i] {
		case cr:
			n, err = t.write(crMarker)
			t.afterAnnotation = false
			i++

		case lf:
			n, err = t.write(lfMarker)
			t.afterAnnotation = false
			i++

		case esc:
			if t.afterAnnotation {
				n, err = t.write(lineBreak)
				total += n
				if err != nil {
					return total, err
				}
			}

			j := findFinal(chunk, i)
			if j < 0 {
				n, err = t.write(escMarker)
				i++
			} else {
				n, err = t.write(t.annotate(chunk[i+1 : j+1]))
				i = j + 1
			}
			t.afterAnnotation = true

		default:
			start := i
			for i < size && !isSpecial(chunk[i]) {
				i++
			}
			n, err = t.write(chunk[start:i])
			t.afterAnnotation = false
		}

		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// annotate builds the colored form of a complete sequence. seq is the
// sequence without its leading ESC; its last byte is the final byte.
func (t *Transcoder) annotate(seq []byte) []byte {
	buf := t.scratch[:0]

	code, ok := Classify(seq[len(seq)-1]).ColorCode()
	if ok {
		buf = append(buf, colorPrefix...)
		buf = strconv.AppendInt(buf, int64(code), 10)
		buf = append(buf, 'm')
	} else {
		buf = append(buf, dimOn...)
	}

	buf = append(buf, caret...)
	buf = append(buf, seq...)

	if ok {
		buf = append(buf, colorOff...)
	} else {
		buf = append(buf, dimOff...)
	}

	t.scratch = buf
	return buf
}

func (t *Transcoder) write(p []byte) (int, error) {
	n, err := t.sink.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// findFinal returns the index of the final byte (0x40-0x7E) of the
// sequence introduced by the ESC at chunk[start], or -1 if the sequence is
// incomplete. The byte after ESC must be printable and every byte between
// it and the final byte must be a parameter or intermediate byte
// (0x20-0x3F).
func findFinal(chunk []byte, start int) int {
	if start+1 >= len(chunk) || !isPrintable(chunk[start+1]) {
		return -1
	}
	for j := start + 2; j < len(chunk); j++ {
		switch b := chunk[j]; {
		case isFinalByte(b):
			return j
		case !isParameterByte(b):
			return -1
		}
	}
	return -1
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}

func isParameterByte(b byte) bool {
	return b >= 0x20 && b <= 0x3f
}

func isFinalByte(b byte) bool {
	return b >= 0x40 && b <= 0x7e
}

func isSpecial(b byte) bool {
	return b == esc || b == cr || b == lf
}
