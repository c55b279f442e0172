package main

import (
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the read size for the output loop.
const DefaultChunkSize = 512

// RelayOutput copies program output to the transcript and the live display.
// Each chunk is transcoded first and then written to display unmodified.
// It returns nil when src reaches end of stream.
func RelayOutput(src io.Reader, transcoder *Transcoder, display io.Writer, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := transcoder.Transcode(chunk); werr != nil {
				return fmt.Errorf("write transcript: %w", werr)
			}
			if _, werr := display.Write(chunk); werr != nil {
				return fmt.Errorf("write display: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read program output: %w", err)
		}
	}
}

// RelayInput copies keystrokes to the program one byte at a time so that
// nothing sits in a buffer waiting for more input.
func RelayInput(src io.Reader, dst io.Writer) error {
	var b [1]byte

	for {
		n, err := src.Read(b[:])
		if n > 0 {
			if _, werr := dst.Write(b[:n]); werr != nil {
				return fmt.Errorf("write program input: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
	}
}
