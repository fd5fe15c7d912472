package generation

import "bytes"

// frameDecoder splits a raw byte stream into blank-line separated protocol
// frames. It owns a single byte buffer carrying decoded-but-unconsumed input
// across reads, so a delimiter or a multi-byte character split across chunk
// boundaries reassembles correctly. Each Generate call gets its own decoder;
// instances are never shared.
type frameDecoder struct {
	buf []byte
}

// push appends chunk to the buffer and extracts every complete frame from its
// front. A single chunk may yield zero, one, or many frames. Frames that
// reduce to whitespace are dropped here so keep-alive blank lines never reach
// the dispatcher.
func (d *frameDecoder) push(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []string
	for {
		frame, rest, ok := cutFrame(d.buf)
		if !ok {
			break
		}
		d.buf = rest
		if len(bytes.TrimSpace(frame)) > 0 {
			frames = append(frames, string(frame))
		}
	}
	return frames
}

// flush offers whatever the buffer still holds as a final candidate frame.
// Called once after the raw stream ends; some servers terminate without a
// trailing delimiter.
func (d *frameDecoder) flush() (string, bool) {
	tail := d.buf
	d.buf = nil
	if len(bytes.TrimSpace(tail)) == 0 {
		return "", false
	}
	return string(tail), true
}

// cutFrame finds the first blank-line delimiter ("\n\n", with a CR tolerated
// between the two newlines) and cuts the text before it. ok is false when no
// complete delimiter is present yet; a trailing "\n\r" is treated as
// incomplete because the next chunk may finish the delimiter.
func cutFrame(b []byte) (frame, rest []byte, ok bool) {
	for i := 0; i+1 < len(b); i++ {
		if b[i] != '\n' {
			continue
		}
		switch b[i+1] {
		case '\n':
			return b[:i], b[i+2:], true
		case '\r':
			if i+2 >= len(b) {
				return nil, b, false
			}
			if b[i+2] == '\n' {
				return b[:i], b[i+3:], true
			}
		}
	}
	return nil, b, false
}
