package predicate

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	openSquareBracketCode
	closeSquareBracketCode
	openParenCode
	closeParenCode
	valueCode
)

// Token definitions
var (
	whitespaceToken         = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken         = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	openSquareBracketToken  = parsly.NewToken(openSquareBracketCode, "[", matcher.NewByte('['))
	closeSquareBracketToken = parsly.NewToken(closeSquareBracketCode, "]", matcher.NewByte(']'))
	openParenToken          = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken         = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	valueToken              = parsly.NewToken(valueCode, "Value", newValueMatcher())
)

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

func newValueMatcher() parsly.Matcher {
	return &valueMatcher{}
}

// identifierMatcher matches field and matcher names
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}

	// First character must be a letter or underscore
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}

	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}

	return matched
}

// valueMatcher captures everything until the closing parenthesis
type valueMatcher struct{}

func (m *valueMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}

	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == ')' {
			break
		}
		matched++
	}

	return matched
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
