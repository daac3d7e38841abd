package stomp

import (
	"fmt"
	"strings"
)

// STOMP commands used by this client.
const (
	cmdConnect     = "CONNECT"
	cmdConnected   = "CONNECTED"
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
	cmdMessage     = "MESSAGE"
	cmdError       = "ERROR"
)

// Frame is a single STOMP frame: command line, header lines, blank line,
// body terminated by a NUL octet.
type Frame struct {
	Command string
	Headers map[string]string
	Body    string
}

func newFrame(command string, headers map[string]string) *Frame {
	return &Frame{Command: command, Headers: headers}
}

// Marshal renders the frame on the wire.
func (f *Frame) Marshal() []byte {
	var b strings.Builder
	b.WriteString(f.Command)
	b.WriteByte('\n')
	for k, v := range f.Headers {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(f.Body)
	b.WriteByte(0)
	return []byte(b.String())
}

// heartbeat is the EOL-only frame both peers send to keep the connection warm.
var heartbeat = []byte("\n")

func isHeartbeat(data []byte) bool {
	trimmed := strings.TrimRight(string(data), "\r\n\x00")
	return trimmed == ""
}

// ParseFrame decodes a wire frame. Heart-beat frames must be filtered out by
// the caller first.
func ParseFrame(data []byte) (*Frame, error) {
	raw := strings.TrimRight(string(data), "\x00")
	head, body, _ := strings.Cut(raw, "\n\n")

	lines := strings.Split(strings.TrimLeft(head, "\r\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("empty frame")
	}

	frame := &Frame{
		Command: strings.TrimRight(lines[0], "\r"),
		Headers: make(map[string]string, len(lines)-1),
	}
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		// first occurrence wins per the STOMP spec
		if _, exists := frame.Headers[key]; !exists {
			frame.Headers[key] = value
		}
	}
	frame.Body = body
	return frame, nil
}
