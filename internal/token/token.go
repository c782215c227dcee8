package token

import "fmt"

// Token records where a goal or declaration came from in the source.
// The front end attaches one to every goal node and environment entry;
// the engine only ever reads them back out for diagnostics.
type Token struct {
	Lexeme string
	Line   int
	Column int
}

// Pos renders the position as "line:col".
func (t Token) Pos() string {
	return fmt.Sprintf("%d:%d", t.Line, t.Column)
}

// Before orders tokens by source position, with the lexeme as a final
// tie-break so sorting diagnostics is total.
func (t Token) Before(other Token) bool {
	if t.Line != other.Line {
		return t.Line < other.Line
	}
	if t.Column != other.Column {
		return t.Column < other.Column
	}
	return t.Lexeme < other.Lexeme
}
