// Package pdf extracts plain text from PDF attachments for summarization.
// Page content streams are read with pdfcpu and the text-showing operators
// are decoded into a rough but serviceable text rendering. Layout fidelity
// is not a goal; the text only feeds a language model.
package pdf

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// ExtractionError reports a document whose text could not be extracted.
type ExtractionError struct {
	Path  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Path, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ExtractText reads every page of the PDF at path and returns the decoded
// text. Individual unreadable pages are skipped; a document yielding no
// text at all is an ExtractionError.
func ExtractText(path string) (string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Cause: err}
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		reader, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil || reader == nil {
			continue
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			continue
		}
		pageText := DecodeContentText(content)
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &ExtractionError{Path: path, Cause: errors.New("document contains no extractable text")}
	}
	return text, nil
}

// DecodeContentText decodes the text-showing operators (Tj, TJ, ', ") of a
// page content stream. Literal strings honor balanced parentheses and
// backslash escapes; hex strings are decoded bytewise. Positioning
// operators that start a new line emit a newline so paragraphs keep a
// semblance of separation.
func DecodeContentText(content []byte) string {
	var (
		out     strings.Builder
		pending []string
	)

	flush := func() {
		for _, s := range pending {
			out.WriteString(s)
		}
		pending = pending[:0]
	}

	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == '(':
			s, next := parseLiteralString(content, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(content) && content[i+1] != '<':
			s, next := parseHexString(content, i)
			pending = append(pending, s)
			i = next
		case isOperatorChar(c):
			op, next := parseToken(content, i)
			switch op {
			case "Tj", "TJ":
				flush()
			case "'", "\"":
				out.WriteString("\n")
				flush()
			case "Td", "TD", "T*", "ET":
				pending = pending[:0]
				out.WriteString("\n")
			}
			i = next
		default:
			// Numbers, names, delimiters between strings are irrelevant
			// for text recovery.
			if c == '[' || c == ']' {
				i++
				continue
			}
			_, next := parseToken(content, i)
			i = next
		}
	}
	flush()

	return collapseBlankLines(out.String())
}

// parseLiteralString parses a (...) string starting at the opening paren,
// honoring balanced nested parens and backslash escapes per the PDF string
// syntax. It returns the decoded text and the index past the closing paren.
func parseLiteralString(content []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 < len(content) {
				switch content[i+1] {
				case 'n':
					sb.WriteByte('\n')
				case 'r', 't', 'b', 'f':
					sb.WriteByte(' ')
				case '(', ')', '\\':
					sb.WriteByte(content[i+1])
				}
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				sb.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

// parseHexString parses a <...> hex string, returning decoded bytes and the
// index past the closing bracket. Non-printable result bytes are dropped.
func parseHexString(content []byte, start int) (string, int) {
	i := start + 1
	var hexDigits []byte
	for i < len(content) && content[i] != '>' {
		c := content[i]
		if isHexDigit(c) {
			hexDigits = append(hexDigits, c)
		}
		i++
	}
	if i < len(content) {
		i++ // consume '>'
	}
	if len(hexDigits)%2 == 1 {
		hexDigits = append(hexDigits, '0')
	}

	var sb strings.Builder
	for j := 0; j+1 < len(hexDigits); j += 2 {
		b := hexValue(hexDigits[j])<<4 | hexValue(hexDigits[j+1])
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(byte(b))
		}
	}
	return sb.String(), i
}

// parseToken consumes one whitespace-delimited token and returns it.
func parseToken(content []byte, start int) (string, int) {
	i := start
	for i < len(content) && !isWhitespace(content[i]) && !isDelimiter(content[i]) {
		i++
	}
	if i == start {
		return "", i + 1
	}
	return string(content[start:i]), i
}

func isOperatorChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '\'' || c == '"'
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == 0
}

func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' || c == '[' || c == ']' || c == '/' || c == '%'
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(kept) > 0 {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		kept = append(kept, trimmed)
		blank = false
	}
	return strings.Join(kept, "\n")
}
