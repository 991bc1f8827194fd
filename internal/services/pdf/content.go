package pdf

import (
	"strconv"
	"strings"
)

// TJ adjustments below this (thousandths of an em) are treated as word gaps
const tjSpaceThreshold = -200

// TextFromContent recovers readable text from a decoded page content stream.
// Text showing operators (Tj, TJ, ' and ") produce text; line moves and
// text object ends produce newlines. Strings in fonts without a simple
// encoding come out as raw bytes.
func TextFromContent(content []byte) string {
	s := &contentScanner{data: content}
	var out strings.Builder
	var operands []operand

	newline := func() {
		str := out.String()
		if len(str) > 0 && !strings.HasSuffix(str, "\n") {
			out.WriteByte('\n')
		}
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		if tok.kind != kindOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tj":
			if str, ok := lastString(operands); ok {
				out.WriteString(str)
			}
		case "'", "\"":
			newline()
			if str, ok := lastString(operands); ok {
				out.WriteString(str)
			}
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == kindArray {
				for _, item := range operands[n-1].items {
					switch item.kind {
					case kindString:
						out.WriteString(item.text)
					case kindNumber:
						if item.num < tjSpaceThreshold {
							out.WriteByte(' ')
						}
					}
				}
			}
		case "Td", "TD":
			if n := len(operands); n >= 2 && operands[n-1].kind == kindNumber && operands[n-1].num != 0 {
				newline()
			} else if n >= 2 && operands[n-2].kind == kindNumber && operands[n-2].num > 0 {
				out.WriteByte(' ')
			}
		case "T*", "ET":
			newline()
		case "Tm":
			newline()
		}
		operands = operands[:0]
	}
	return collapseLines(out.String())
}

func lastString(ops []operand) (string, bool) {
	if len(ops) == 0 || ops[len(ops)-1].kind != kindString {
		return "", false
	}
	return ops[len(ops)-1].text, true
}

func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		l = strings.TrimRight(l, " ")
		if strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

type operandKind int

const (
	kindOperator operandKind = iota
	kindString
	kindNumber
	kindArray
	kindOther
)

type operand struct {
	kind  operandKind
	text  string
	num   float64
	items []operand
}

type contentScanner struct {
	data []byte
	pos  int
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func (s *contentScanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isSpace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *contentScanner) next() (operand, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return operand{}, false
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		s.pos++
		return operand{kind: kindString, text: s.literal()}, true
	case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
		s.skipDict()
		return operand{kind: kindOther}, true
	case c == '<':
		s.pos++
		return operand{kind: kindString, text: s.hex()}, true
	case c == '[':
		s.pos++
		var items []operand
		for {
			s.skipSpace()
			if s.pos >= len(s.data) {
				break
			}
			if s.data[s.pos] == ']' {
				s.pos++
				break
			}
			item, ok := s.next()
			if !ok {
				break
			}
			items = append(items, item)
		}
		return operand{kind: kindArray, items: items}, true
	case c == '/':
		s.pos++
		s.word()
		return operand{kind: kindOther}, true
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		s.pos++
		return operand{kind: kindOther}, true
	}

	w := s.word()
	if n, err := strconv.ParseFloat(w, 64); err == nil {
		return operand{kind: kindNumber, num: n, text: w}, true
	}
	if w == "BI" {
		s.skipInlineImage()
		return operand{kind: kindOther}, true
	}
	return operand{kind: kindOperator, text: w}, true
}

func (s *contentScanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a (string) body after the opening parenthesis
func (s *contentScanner) literal() string {
	var b []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return decodeText(b)
			}
		case '\\':
			if s.pos >= len(s.data) {
				continue
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'b':
				b = append(b, '\b')
			case 'f':
				b = append(b, '\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					b = append(b, byte(v))
				} else {
					b = append(b, e)
				}
			}
			continue
		}
		b = append(b, c)
	}
	return decodeText(b)
}

func (s *contentScanner) hex() string {
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	b := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return ""
		}
		b = append(b, byte(v))
	}
	return decodeText(b)
}

func (s *contentScanner) skipDict() {
	depth := 0
	for s.pos+1 < len(s.data) {
		if s.data[s.pos] == '<' && s.data[s.pos+1] == '<' {
			depth++
			s.pos += 2
			continue
		}
		if s.data[s.pos] == '>' && s.data[s.pos+1] == '>' {
			depth--
			s.pos += 2
			if depth == 0 {
				return
			}
			continue
		}
		s.pos++
	}
	s.pos = len(s.data)
}

func (s *contentScanner) skipInlineImage() {
	for i := s.pos; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if isSpace(s.data[i-1]) && (i+2 >= len(s.data) || isSpace(s.data[i+2])) {
			s.pos = i + 2
			return
		}
	}
	s.pos = len(s.data)
}

// decodeText handles UTF-16BE strings with a byte order mark and two-byte
// codes whose high bytes are all zero. Other bytes map through Latin-1.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return utf16BE(b[2:])
	}
	if len(b) >= 2 && len(b)%2 == 0 {
		wide := true
		for i := 0; i < len(b); i += 2 {
			if b[i] != 0 {
				wide = false
				break
			}
		}
		if wide {
			return utf16BE(b)
		}
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func utf16BE(b []byte) string {
	r := make([]rune, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := rune(b[i])<<8 | rune(b[i+1])
		if u >= 0xD800 && u < 0xDC00 && i+3 < len(b) {
			lo := rune(b[i+2])<<8 | rune(b[i+3])
			if lo >= 0xDC00 && lo < 0xE000 {
				r = append(r, (u-0xD800)<<10+(lo-0xDC00)+0x10000)
				i += 2
				continue
			}
		}
		r = append(r, u)
	}
	return string(r)
}
