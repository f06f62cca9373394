package llm

import "strings"

// doneSentinel is the SSE end-of-stream marker.
const doneSentinel = "[DONE]"

// StreamOutcome is the terminal state of one streamed exchange.
type StreamOutcome int

const (
	// OutcomeCompleted means the stream produced usable text.
	OutcomeCompleted StreamOutcome = iota
	// OutcomeZeroDelta means the stream ended without ever delivering a
	// delta; the caller falls back to a non-streaming exchange.
	OutcomeZeroDelta
	// OutcomeAborted means an HTTP error or explicit abort stopped the
	// stream before completion.
	OutcomeAborted
	// OutcomeErrored means the transport failed without a recognized
	// completion.
	OutcomeErrored
)

// StreamState holds the call-scoped decoding state for one in-flight
// streamed exchange. It lives exactly as long as the exchange and is owned
// solely by the caller driving Feed; it is never shared across calls.
//
// The transport delivers progressively larger snapshots of the same
// cumulative response buffer. Feed only scans the newly appended suffix plus
// any incomplete fragment carried over from the previous invocation.
type StreamState struct {
	profile   Profile
	processed int    // bytes of the cumulative snapshot already consumed
	pending   string // incomplete trailing line awaiting more bytes
	scan      objectScanner

	acc       []byte // assembled response text
	delivered int    // prefix of acc already emitted as increments

	doneSeen bool
	aborted  bool
	err      error
}

// NewStreamState creates the decoding state for one exchange against the
// given provider profile.
func NewStreamState(profile Profile) *StreamState {
	return &StreamState{profile: profile}
}

// Feed consumes the current cumulative response snapshot and returns the
// ordered text increments newly decoded from it. Bytes accounted for by a
// previous call are never re-parsed, and a previously delivered increment is
// never re-emitted. After Abort or the completion sentinel, Feed returns
// nothing.
func (s *StreamState) Feed(snapshot []byte) []string {
	if s.aborted || s.doneSeen {
		return nil
	}
	if len(snapshot) <= s.processed {
		return nil
	}
	chunk := string(snapshot[s.processed:])
	s.processed = len(snapshot)

	if s.profile == ProfileGemini {
		return s.feedObjects(chunk)
	}
	return s.feedLines(chunk)
}

// feedLines handles the line-oriented protocols: SSE frames and NDJSON.
func (s *StreamState) feedLines(chunk string) []string {
	data := s.pending + chunk
	lines := strings.Split(data, "\n")
	// The final element is the text after the last newline: empty when the
	// snapshot ended exactly on a line boundary, otherwise an incomplete
	// line carried forward to the next invocation.
	s.pending = lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	var increments []string
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		var payload string
		switch {
		case strings.HasPrefix(trimmed, "data:"):
			payload = strings.TrimSpace(strings.TrimPrefix(trimmed, "data:"))
			if payload == doneSentinel {
				s.doneSeen = true
				return increments
			}
		case strings.HasPrefix(trimmed, "{"):
			// A bare JSON object line is an NDJSON frame.
			payload = trimmed
		default:
			// Protocol noise such as "event: ping" or SSE comments.
			continue
		}

		delta, ok := extractDelta(s.profile, []byte(payload))
		if !ok || delta == "" {
			// Malformed or contentless frames are dropped silently; a
			// single bad frame must not abort an otherwise healthy stream.
			continue
		}
		increments = append(increments, s.appendText(delta)...)
	}
	return increments
}

// feedObjects handles Gemini's stream: a single top-level JSON array
// rendered incrementally. Individual {...} elements are isolated with the
// object scanner and parsed alone; the accumulated array is perpetually
// invalid JSON until the stream closes, so it is never parsed whole.
func (s *StreamState) feedObjects(chunk string) []string {
	var increments []string
	for _, obj := range s.scan.feed(chunk) {
		delta, ok := extractDelta(ProfileGemini, obj)
		if !ok || delta == "" {
			continue
		}
		increments = append(increments, s.appendText(delta)...)
	}
	return increments
}

// appendText appends a decoded delta to the assembled text and returns the
// not-yet-delivered suffix as one increment.
func (s *StreamState) appendText(delta string) []string {
	s.acc = append(s.acc, delta...)
	if s.delivered >= len(s.acc) {
		return nil
	}
	increment := string(s.acc[s.delivered:])
	s.delivered = len(s.acc)
	return []string{increment}
}

// Abort marks the stream as failed. No further increments are emitted for
// this call after Abort returns.
func (s *StreamState) Abort(err error) {
	s.aborted = true
	if s.err == nil {
		s.err = err
	}
}

// Text returns the full assembled response text so far.
func (s *StreamState) Text() string {
	return string(s.acc)
}

// Delivered reports whether at least one increment has been emitted.
func (s *StreamState) Delivered() bool {
	return s.delivered > 0
}

// Completed reports whether the completion sentinel was observed.
func (s *StreamState) Completed() bool {
	return s.doneSeen
}

// Err returns the error captured by Abort, if any.
func (s *StreamState) Err() error {
	return s.err
}

// Outcome resolves the terminal state of the exchange once the transport has
// stopped delivering bytes. transportErr is the read-side error, if any.
//
// A transport error reported after the completion sentinel with at least one
// delivered delta is reclassified as success: some servers close the socket
// abruptly right after [DONE].
func (s *StreamState) Outcome(transportErr error) StreamOutcome {
	switch {
	case s.aborted:
		return OutcomeAborted
	case transportErr != nil && s.doneSeen && s.delivered > 0:
		return OutcomeCompleted
	case transportErr != nil:
		return OutcomeErrored
	case s.delivered > 0:
		return OutcomeCompleted
	default:
		return OutcomeZeroDelta
	}
}
