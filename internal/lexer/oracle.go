package lexer

// isRegexContext is the regex-context oracle: a pure, backward-scanning
// heuristic consulted only when the cursor sits on a bare '/' or a
// '#'-run immediately followed by '/'. It decides whether that slash
// opens a regex literal or is a division operator.
//
// This is a heuristic, not a parser: it looks at the nearest preceding
// significant byte or keyword and nothing more. It can be fooled by
// constructs that need real expression parsing to disambiguate; treat it
// as a fixed contract, not something to patch case-by-case.
func isRegexContext(src []byte, cursor int) bool {
	pos := cursor - 1
	for pos >= 0 && isSpaceByte(src[pos]) {
		pos--
	}
	if pos < 0 {
		return true
	}

	c := src[pos]
	if isRegexPrecedingByte(c) {
		return true
	}

	for _, keyword := range regexContextKeywords {
		n := len(keyword)
		if pos < n-1 {
			continue
		}
		start := pos - n + 1
		if string(src[start:pos+1]) != keyword {
			continue
		}
		if start == 0 || !isAlnumByte(src[start-1]) {
			return true
		}
	}
	return false
}

var regexContextKeywords = []string{"return", "where"}

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

func isAlnumByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

var regexPrecedingBytes = map[byte]bool{
	'=': true, '(': true, ',': true, '[': true, ':': true, '{': true,
	'!': true, '&': true, '|': true, '^': true, '+': true, '-': true,
	'*': true, '%': true, '<': true, '>': true, '~': true, ';': true,
}

func isRegexPrecedingByte(c byte) bool {
	return regexPrecedingBytes[c]
}
