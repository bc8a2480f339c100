package lexer

// mode is the lexer's tagged-variant state.
type mode int

const (
	modeNormal mode = iota
	modeLineComment
	modeBlockComment
	modeString
	modeStringEscape
	modeMultilineString
	modeMultilineStringEscape
	modeRegex
	modeExtendedRegex
	modeInterpolation
)

// frame is a saved (mode, hashCount, quoteCount) triple, pushed onto the
// mode stack when a string enters an interpolation so the enclosing
// string's delimiter can be recognized again on return. Interpolation is
// modeled as a stack of these frames, not a boolean, because strings nest
// arbitrarily deep.
type frame struct {
	mode       mode
	hashCount  int
	quoteCount int
}
