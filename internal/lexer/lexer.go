// Package lexer implements the comment-stripping lexical state machine.
//
// Strip is the only public entry point: a pure, total, deterministic
// transducer from source text to source text with every line comment,
// block comment (however deeply nested), and extended-regex free-spacing
// comment elided, while string, raw-string, interpolation, and regex
// literal contents are preserved byte-for-byte.
//
// The lexer never errors. A malformed input (an unterminated string,
// comment, or interpolation) still terminates and returns its best-effort
// output; nothing about the truncation is reported from inside this
// package.
package lexer

import (
	"bytes"

	"github.com/aledsdavies/stripcomments/internal/invariant"
)

// stripper holds all state for a single Strip invocation. It is created
// fresh on every call and discarded on return — no state persists across
// invocations.
type stripper struct {
	src []byte
	i   int
	out *outputBuffer

	mode       mode
	hashCount  int
	quoteCount int

	blockDepth int

	// parenDepth doubles as "are we inside an active interpolation" (>0)
	// the same way the reference implementation's single interpolation
	// depth counter does: entering a fresh `\(` always resets it to 1,
	// so a string nested two interpolations deep that itself contains a
	// further interpolation does not preserve the outer paren depth
	// across that inner excursion. That is inherited, documented
	// behavior (see DESIGN.md), not a bug to silently fix.
	parenDepth   int
	braceDepth   int
	bracketDepth int

	stack []frame

	lineHadCode bool
}

// Strip removes all comments from src, returning the transformed text.
// It is pure and total: it never panics on malformed input and never
// blocks.
func Strip(src string) string {
	s := &stripper{
		src: []byte(src),
		out: newOutputBuffer(len(src)),
	}
	for s.i < len(s.src) {
		s.step()
		s.i++
	}
	return s.out.String()
}

func (s *stripper) step() {
	switch s.mode {
	case modeNormal, modeInterpolation:
		s.handleNormalOrInterpolation()
	case modeLineComment:
		s.handleLineComment()
	case modeBlockComment:
		s.handleBlockComment()
	case modeString:
		s.handleAnyString(modeStringEscape)
	case modeMultilineString:
		s.handleAnyString(modeMultilineStringEscape)
	case modeStringEscape:
		s.out.writeByte(s.src[s.i])
		s.mode = modeString
	case modeMultilineStringEscape:
		s.out.writeByte(s.src[s.i])
		s.mode = modeMultilineString
	case modeRegex:
		s.handleRegex()
	case modeExtendedRegex:
		s.handleExtendedRegex()
	}
}

// handleNormalOrInterpolation is the shared dispatch for Normal and
// Interpolation: identical lexical rules, differing only in the
// bookkeeping that fires when the current mode is Interpolation.
func (s *stripper) handleNormalOrInterpolation() {
	if s.mode == modeInterpolation {
		invariant.Invariant(len(s.stack) > 0, "mode stack must not be empty while mode is Interpolation")
	}

	c := s.src[s.i]
	next, hasNext := s.peekByte(1)

	if c == '/' && hasNext && next == '/' {
		s.out.trimTrailingSpacesAndTabs()
		s.lineHadCode = s.computeLineHadCode()
		s.mode = modeLineComment
		s.i++
		return
	}
	if c == '/' && hasNext && next == '*' {
		s.out.trimTrailingSpacesAndTabs()
		s.lineHadCode = s.computeLineHadCode()
		s.mode = modeBlockComment
		s.blockDepth = 1
		s.i++
		return
	}

	if c == '#' {
		hashCount := s.countRun('#', 0)
		if afterHash, ok := s.peekByte(hashCount); ok {
			if afterHash == '"' {
				quoteCount := s.countRun('"', hashCount)
				st := modeString
				if quoteCount >= 3 {
					st = modeMultilineString
				}
				s.enterStringState(st, hashCount, quoteCount)
				return
			}
			if afterHash == '/' && isRegexContext(s.src, s.i) {
				s.mode = modeExtendedRegex
				s.hashCount = hashCount
				s.out.writeBytes(bytes.Repeat([]byte{'#'}, hashCount))
				s.out.writeByte('/')
				s.i += hashCount
				return
			}
		}
	}

	if c == '"' {
		quoteCount := s.countRun('"', 0)
		st := modeString
		if quoteCount >= 3 {
			st = modeMultilineString
		}
		s.enterStringState(st, 0, quoteCount)
		return
	}

	if c == '/' && isRegexContext(s.src, s.i) {
		s.mode = modeRegex
		s.out.writeByte(c)
		return
	}

	s.out.writeByte(c)

	if s.mode == modeInterpolation {
		switch c {
		case '(':
			s.parenDepth++
		case '{':
			s.braceDepth++
		case '[':
			s.bracketDepth++
		case ')':
			s.parenDepth--
			if s.parenDepth == 0 && s.braceDepth == 0 && s.bracketDepth == 0 {
				f := s.popFrame()
				s.mode = f.mode
				s.hashCount = f.hashCount
				s.quoteCount = f.quoteCount
			}
		case '}':
			s.braceDepth--
		case ']':
			s.bracketDepth--
		}
	}
}

func (s *stripper) enterStringState(st mode, hashCount, quoteCount int) {
	s.mode = st
	s.hashCount = hashCount
	if st == modeMultilineString {
		s.quoteCount = quoteCount
	} else {
		s.quoteCount = 1
	}

	delimiters := append(bytes.Repeat([]byte{'#'}, hashCount), bytes.Repeat([]byte{'"'}, s.quoteCount)...)
	s.out.writeBytes(delimiters)
	s.i += len(delimiters) - 1
}

func (s *stripper) handleLineComment() {
	if s.src[s.i] == '\n' {
		s.revertFromComment()
		if s.lineHadCode {
			s.out.writeByte('\n')
		}
	}
}

func (s *stripper) handleBlockComment() {
	invariant.Invariant(s.blockDepth >= 1, "block depth must be at least 1 while mode is BlockComment")

	c := s.src[s.i]
	next, hasNext := s.peekByte(1)

	switch {
	case c == '/' && hasNext && next == '*':
		s.blockDepth++
		s.i++
	case c == '*' && hasNext && next == '/':
		s.blockDepth--
		s.i++
		if s.blockDepth == 0 {
			s.revertFromComment()
			if after, ok := s.peekByte(1); ok && after == '\n' && !s.lineHadCode {
				s.i++
			}
		}
	}
}

// handleAnyString implements the shared logic of String and
// MultilineString: escapeMode is the `…Escape` mode to enter on a lone
// backslash escape.
func (s *stripper) handleAnyString(escapeMode mode) {
	c := s.src[s.i]
	next, hasNext := s.peekByte(1)

	if c == '\\' {
		if hasNext && next == '(' {
			s.out.writeString(`\(`)
			s.i++
			s.pushFrame(frame{mode: s.mode, hashCount: s.hashCount, quoteCount: s.quoteCount})
			s.mode = modeInterpolation
			s.parenDepth = 1
			s.braceDepth = 0
			s.bracketDepth = 0
		} else {
			s.mode = escapeMode
			s.out.writeByte(c)
		}
		return
	}

	isClosing := false
	if c == '"' {
		endQuoteCount := s.countRun('"', 0)
		if endQuoteCount >= s.quoteCount {
			if s.hashCount > 0 {
				if s.countRun('#', endQuoteCount) >= s.hashCount {
					isClosing = true
				}
			} else {
				isClosing = true
			}
		}
	}

	if isClosing {
		delimiters := append(bytes.Repeat([]byte{'"'}, s.quoteCount), bytes.Repeat([]byte{'#'}, s.hashCount)...)
		s.out.writeBytes(delimiters)
		s.i += len(delimiters) - 1
		s.revertToPreviousState()
	} else {
		s.out.writeByte(c)
	}
}

func (s *stripper) handleRegex() {
	c := s.src[s.i]
	next, hasNext := s.peekByte(1)

	switch {
	case c == '\\' && hasNext:
		s.out.writeByte(c)
		s.out.writeByte(next)
		s.i++
	case c == '/':
		s.out.writeByte(c)
		s.revertToPreviousState()
	default:
		s.out.writeByte(c)
	}
}

func (s *stripper) handleExtendedRegex() {
	c := s.src[s.i]

	if c == '/' && s.countRun('#', 1) >= s.hashCount {
		delimiters := append([]byte{'/'}, bytes.Repeat([]byte{'#'}, s.hashCount)...)
		s.out.writeBytes(delimiters)
		s.i += s.hashCount
		s.revertToPreviousState()
		return
	}

	if c == '#' {
		s.out.trimTrailingSpacesOnly()
		for s.i < len(s.src) && s.src[s.i] != '\n' {
			s.i++
		}
		s.i--
		return
	}

	if c == '\\' {
		if next, ok := s.peekByte(1); ok {
			s.out.writeByte(c)
			s.out.writeByte(next)
			s.i++
			return
		}
	}

	s.out.writeByte(c)
}

// revertFromComment restores the mode a line or block comment interrupted:
// Interpolation if one is active, Normal otherwise.
func (s *stripper) revertFromComment() {
	if s.parenDepth > 0 {
		s.mode = modeInterpolation
	} else {
		s.mode = modeNormal
	}
}

// revertToPreviousState restores the mode after a string or regex literal
// closes, using the same active-interpolation check as revertFromComment.
func (s *stripper) revertToPreviousState() {
	s.hashCount = 0
	s.quoteCount = 0
	if s.parenDepth > 0 {
		s.mode = modeInterpolation
	} else {
		s.mode = modeNormal
	}
}

func (s *stripper) pushFrame(f frame) {
	s.stack = append(s.stack, f)
}

func (s *stripper) popFrame() frame {
	n := len(s.stack)
	if n == 0 {
		// Malformed input closed an interpolation that was never opened
		// in a way the stack could track; fall back to Normal rather
		// than panic. Stripping never errors, even on malformed input.
		return frame{mode: modeNormal}
	}
	f := s.stack[n-1]
	s.stack = s.stack[:n-1]
	return f
}

func (s *stripper) peekByte(offset int) (byte, bool) {
	pos := s.i + offset
	if pos < 0 || pos >= len(s.src) {
		return 0, false
	}
	return s.src[pos], true
}

func (s *stripper) countRun(c byte, startOffset int) int {
	count := 0
	pos := s.i + startOffset
	for pos < len(s.src) && s.src[pos] == c {
		count++
		pos++
	}
	return count
}

// computeLineHadCode looks backward from the cursor, in the source, to the
// previous newline (or start of file). It reports whether any
// non-whitespace byte appears in that range.
func (s *stripper) computeLineHadCode() bool {
	pos := s.i - 1
	for pos >= 0 {
		c := s.src[pos]
		if c == '\n' {
			return false
		}
		if c != ' ' && c != '\t' {
			return true
		}
		pos--
	}
	return false
}
