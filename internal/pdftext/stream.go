package pdftext

import (
	"strconv"
	"strings"
)

// TextFromContentStream pulls the shown strings out of a decoded page content stream.
// It understands Tj, TJ, ', " and the positioning operators well enough to keep
// line structure. Bytes are mapped one-to-one onto Latin-1 runes, which covers
// WinAnsi/PDFDoc encoded Portuguese text; CID fonts come out garbled.
func TextFromContentStream(data []byte) string {
	var (
		sb      strings.Builder
		strs    []string
		nums    []float64
		lastNew = true
	)
	newline := func() {
		if !lastNew && sb.Len() > 0 {
			sb.WriteByte('\n')
			lastNew = true
		}
	}
	write := func(s string) {
		if s == "" {
			return
		}
		sb.WriteString(s)
		lastNew = strings.HasSuffix(s, "\n")
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, next := readLiteral(data, i)
			strs = append(strs, s)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '<':
			s, next := readHex(data, i)
			strs = append(strs, s)
			i = next
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '/':
			i = skipRegular(data, i+1)
		case isDelimiter(c) || isWhite(c):
			i++
		default:
			next := skipRegular(data, i)
			if next == i {
				next = i + 1
			}
			tok := string(data[i:next])
			i = next
			if n, err := strconv.ParseFloat(tok, 64); err == nil {
				nums = append(nums, n)
				continue
			}
			switch tok {
			case "Tj", "TJ":
				for _, s := range strs {
					write(s)
				}
			case "'", `"`:
				newline()
				for _, s := range strs {
					write(s)
				}
			case "T*", "ET", "Tm":
				newline()
			case "Td", "TD":
				if len(nums) >= 2 && nums[len(nums)-1] != 0 {
					newline()
				} else if !lastNew {
					write(" ")
				}
			}
			strs, nums = strs[:0], nums[:0]
		}
	}
	return sb.String()
}

// readLiteral decodes a (...) string starting at data[start] == '('.
func readLiteral(data []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b', 'f':
			case '\n':
				// line continuation
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					sb.WriteRune(rune(byte(val)))
				} else {
					sb.WriteRune(rune(e))
				}
			}
		case c == '(':
			if depth > 0 {
				sb.WriteByte('(')
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(')')
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String(), i
}

// readHex decodes a <...> string starting at data[start] == '<'.
func readHex(data []byte, start int) (string, int) {
	var digits []byte
	i := start + 1
	for ; i < len(data) && data[i] != '>'; i++ {
		if v, ok := hexVal(data[i]); ok {
			digits = append(digits, v)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	var sb strings.Builder
	for k := 0; k < len(digits); k += 2 {
		sb.WriteRune(rune(digits[k]<<4 | digits[k+1]))
	}
	return sb.String(), i + 1
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func skipRegular(data []byte, i int) int {
	for i < len(data) && !isWhite(data[i]) && !isDelimiter(data[i]) {
		i++
	}
	return i
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
