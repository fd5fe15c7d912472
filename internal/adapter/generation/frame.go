package generation

import "strings"

// Line prefixes of the wire protocol. The framing is modeled on server-sent
// events but arrives over a plain POST-initiated chunked response.
const (
	eventPrefix = "event:"
	dataPrefix  = "data:"
)

// Recognized event names. Unknown names are skipped for forward compatibility.
const (
	eventStart = "start"
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

// parseFrame extracts the event name and payload from one frame. The last
// event: line wins when several occur. data: lines are trimmed and rejoined
// with newlines; payloads are JSON and never carry embedded newlines, but the
// reconstruction must not assume single-line payloads. A frame lacking either
// an event name or a data line is not an error: ok is false and the caller
// skips it (keep-alives, partial artifacts).
func parseFrame(frame string) (name, payload string, ok bool) {
	var dataLines []string
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, eventPrefix):
			name = strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
		case strings.HasPrefix(line, dataPrefix):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, dataPrefix)))
		}
	}
	if name == "" || len(dataLines) == 0 {
		return "", "", false
	}
	return name, strings.Join(dataLines, "\n"), true
}
