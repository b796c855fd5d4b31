package jsonval

import "fmt"

// cursor is the append-only byte-stream view described by the data model:
// an owned buffer plus a read cursor where cursor <= len(buf) always holds.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) peek() (b byte, ok bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos], true
}

func (c *cursor) peekAt(off int) (b byte, ok bool) {
	if c.pos+off >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos+off], true
}

func (c *cursor) skip(n int) { c.pos += n }

func (c *cursor) errf(format string, args ...any) error {
	return fmt.Errorf("%w: at byte %d: %s", ErrParse, c.pos, fmt.Sprintf(format, args...))
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

func (c *cursor) skipWhitespace() {
	for c.pos < len(c.buf) && isSpace(c.buf[c.pos]) {
		c.pos++
	}
}

func isTerminator(b byte) bool {
	return isSpace(b) || b == ',' || b == ']' || b == '}'
}

// isDigit reports whether b is an ASCII digit.
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Decode parses a single JSON value from data per the strict subset of
// §4.B. The wire protocol only ever frames top-level objects; per the
// source's behavior, a document consisting solely of a bare literal
// (a bool/null/number with no following whitespace/comma/bracket byte) is
// rejected because the terminator lookahead has nothing left to inspect.
// This is intentional and preserved rather than relaxed.
func Decode(data []byte) (*Value, error) {
	c := &cursor{buf: data}
	c.skipWhitespace()
	v, err := parseValue(c)
	if err != nil {
		return nil, err
	}
	c.skipWhitespace()
	if c.pos != len(c.buf) {
		return nil, c.errf("trailing data after top-level value")
	}
	return v, nil
}

func parseValue(c *cursor) (*Value, error) {
	b, ok := c.peek()
	if !ok {
		return nil, c.errf("unexpected end of input")
	}
	switch {
	case b == '{':
		return parseObject(c)
	case b == '[':
		return parseArray(c)
	case b == '"':
		return parseString(c)
	case b == 't':
		return parseLiteral(c, "true", NewBool(true))
	case b == 'f':
		return parseLiteral(c, "false", NewBool(false))
	case b == 'n':
		return parseLiteral(c, "null", NewNull())
	case b == '-' || isDigit(b):
		return parseNumber(c)
	default:
		return nil, c.errf("unexpected character %q", b)
	}
}

// parseLiteral matches an exact keyword, then requires the following byte
// (if any) to be a valid terminator. Running off the end of the buffer
// right after the keyword is a parse error, not a clean EOF.
func parseLiteral(c *cursor, word string, v *Value) (*Value, error) {
	for i := 0; i < len(word); i++ {
		b, ok := c.peekAt(i)
		if !ok || b != word[i] {
			return nil, c.errf("invalid literal, expected %q", word)
		}
	}
	c.skip(len(word))
	if nb, ok := c.peek(); ok && !isTerminator(nb) {
		return nil, c.errf("invalid character after literal %q", word)
	}
	// Running out of bytes entirely after the literal is rejected: the
	// terminator lookahead found nothing to inspect. Nested literals are
	// always followed by a real terminator byte (comma/bracket/brace),
	// so this only bites a bare top-level literal with no trailing bytes.
	if _, ok := c.peek(); !ok {
		return nil, c.errf("literal %q not followed by a terminator", word)
	}
	return v, nil
}

func parseNumber(c *cursor) (*Value, error) {
	start := c.pos
	if b, ok := c.peek(); ok && b == '-' {
		c.skip(1)
	}
	b, ok := c.peek()
	if !ok {
		return nil, c.errf("truncated number")
	}
	if b == '0' {
		c.skip(1)
	} else if isDigit(b) {
		for {
			b, ok := c.peek()
			if !ok || !isDigit(b) {
				break
			}
			c.skip(1)
		}
	} else {
		return nil, c.errf("invalid number")
	}
	if b, ok := c.peek(); ok && b == '.' {
		c.skip(1)
		if b, ok := c.peek(); !ok || !isDigit(b) {
			return nil, c.errf("invalid fraction")
		}
		for {
			b, ok := c.peek()
			if !ok || !isDigit(b) {
				break
			}
			c.skip(1)
		}
	}
	if b, ok := c.peek(); ok && (b == 'e' || b == 'E') {
		c.skip(1)
		if b, ok := c.peek(); ok && (b == '+' || b == '-') {
			c.skip(1)
		}
		if b, ok := c.peek(); !ok || !isDigit(b) {
			return nil, c.errf("invalid exponent")
		}
		for {
			b, ok := c.peek()
			if !ok || !isDigit(b) {
				break
			}
			c.skip(1)
		}
	}
	lit := string(c.buf[start:c.pos])
	nb, ok := c.peek()
	if !ok {
		return nil, c.errf("number %q not followed by a terminator", lit)
	}
	if !isTerminator(nb) {
		return nil, c.errf("invalid character after number")
	}
	f, perr := parseFloat(lit)
	if perr != nil {
		return nil, c.errf("invalid number literal %q", lit)
	}
	return NewNumber(f), nil
}

func parseString(c *cursor) (*Value, error) {
	b, ok := c.peek()
	if !ok || b != '"' {
		return nil, c.errf("expected opening quote")
	}
	c.skip(1)
	var out []byte
	for {
		b, ok := c.peek()
		if !ok {
			return nil, c.errf("unterminated string")
		}
		switch {
		case b == '"':
			c.skip(1)
			return NewString(string(out)), nil
		case b == '\\':
			c.skip(1)
			eb, ok := c.peek()
			if !ok {
				return nil, c.errf("unterminated escape")
			}
			var lit byte
			switch eb {
			case '"':
				lit = '"'
			case '\\':
				lit = '\\'
			case '/':
				lit = '/'
			case 'b':
				lit = '\b'
			case 'f':
				lit = '\f'
			case 'n':
				lit = '\n'
			case 'r':
				lit = '\r'
			case 't':
				lit = '\t'
			default:
				return nil, c.errf("unsupported escape \\%c", eb)
			}
			out = append(out, lit)
			c.skip(1)
		case b < 0x20:
			return nil, c.errf("unescaped control byte 0x%02x in string", b)
		default:
			out = append(out, b)
			c.skip(1)
		}
	}
}

func parseArray(c *cursor) (*Value, error) {
	c.skip(1) // '['
	arr := NewArray()
	c.skipWhitespace()
	if b, ok := c.peek(); ok && b == ']' {
		c.skip(1)
		return arr, nil
	}
	for {
		c.skipWhitespace()
		v, err := parseValue(c)
		if err != nil {
			return nil, err
		}
		arr.Append(v)
		c.skipWhitespace()
		b, ok := c.peek()
		if !ok {
			return nil, c.errf("unterminated array")
		}
		switch b {
		case ',':
			c.skip(1)
			c.skipWhitespace()
			if nb, ok := c.peek(); ok && nb == ']' {
				return nil, c.errf("trailing comma in array")
			}
		case ']':
			c.skip(1)
			return arr, nil
		default:
			return nil, c.errf("expected ',' or ']' in array")
		}
	}
}

func parseObject(c *cursor) (*Value, error) {
	c.skip(1) // '{'
	obj := NewObject()
	c.skipWhitespace()
	if b, ok := c.peek(); ok && b == '}' {
		c.skip(1)
		return obj, nil
	}
	for {
		c.skipWhitespace()
		b, ok := c.peek()
		if !ok || b != '"' {
			return nil, c.errf("expected object key")
		}
		keyVal, err := parseString(c)
		if err != nil {
			return nil, err
		}
		key, _ := keyVal.AsString()
		c.skipWhitespace()
		b, ok = c.peek()
		if !ok || b != ':' {
			return nil, c.errf("expected ':' after object key")
		}
		c.skip(1)
		c.skipWhitespace()
		val, err := parseValue(c)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
		c.skipWhitespace()
		b, ok = c.peek()
		if !ok {
			return nil, c.errf("unterminated object")
		}
		switch b {
		case ',':
			c.skip(1)
			c.skipWhitespace()
			if nb, ok := c.peek(); ok && nb == '}' {
				return nil, c.errf("trailing comma in object")
			}
		case '}':
			c.skip(1)
			return obj, nil
		default:
			return nil, c.errf("expected ',' or '}' in object")
		}
	}
}
