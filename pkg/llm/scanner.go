package llm

// scanPhase is the state of the incremental JSON object scanner.
type scanPhase int

const (
	scanSeeking scanPhase = iota // between objects: skip '[', ',', ']' and whitespace
	scanInObject
	scanInString
	scanInEscape
)

// objectScanner extracts complete top-level {...} objects from a JSON array
// that arrives in arbitrarily sized fragments. Brace depth is tracked
// character by character, with quoted strings and backslash escapes honored
// so that braces inside string values never confuse the depth count. The
// scanner only hands an object onward once its closing brace is seen; an
// unclosed object is held in buf across feed calls.
type objectScanner struct {
	phase scanPhase
	depth int
	buf   []byte
}

// feed consumes the next fragment and returns every object completed by it,
// in order. Each returned slice is an independent copy safe to retain.
func (sc *objectScanner) feed(fragment string) [][]byte {
	var objects [][]byte
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch sc.phase {
		case scanSeeking:
			if c == '{' {
				sc.phase = scanInObject
				sc.depth = 1
				sc.buf = append(sc.buf[:0], c)
			}
		case scanInObject:
			sc.buf = append(sc.buf, c)
			switch c {
			case '"':
				sc.phase = scanInString
			case '{':
				sc.depth++
			case '}':
				sc.depth--
				if sc.depth == 0 {
					obj := make([]byte, len(sc.buf))
					copy(obj, sc.buf)
					objects = append(objects, obj)
					sc.buf = sc.buf[:0]
					sc.phase = scanSeeking
				}
			}
		case scanInString:
			sc.buf = append(sc.buf, c)
			switch c {
			case '\\':
				sc.phase = scanInEscape
			case '"':
				sc.phase = scanInObject
			}
		case scanInEscape:
			sc.buf = append(sc.buf, c)
			sc.phase = scanInString
		}
	}
	return objects
}
