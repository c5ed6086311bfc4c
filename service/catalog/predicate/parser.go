package predicate

import (
	"strings"

	"github.com/viant/parsly"
)

// Parse parses an applicability expression in the format
// field[matcher](value|value…). Field and matcher names are validated after
// the syntactic parse so errors carry the offending name.
func Parse(input []byte) (*Predicate, error) {
	cursor := parsly.NewCursor("", input, 0)
	predicate := &Predicate{}

	// Match the field name (identifier)
	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	predicate.Field = matched.Text(cursor)

	// Match the opening square bracket for the matcher
	matched = cursor.MatchOne(openSquareBracketToken)
	if matched.Code != openSquareBracketToken.Code {
		return nil, cursor.NewError(openSquareBracketToken)
	}

	// Match the matcher name
	matched = cursor.MatchOne(identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	predicate.Matcher = matched.Text(cursor)

	// Match the closing square bracket
	matched = cursor.MatchOne(closeSquareBracketToken)
	if matched.Code != closeSquareBracketToken.Code {
		return nil, cursor.NewError(closeSquareBracketToken)
	}

	// Match the opening parenthesis for the value
	matched = cursor.MatchAfterOptional(whitespaceToken, openParenToken)
	if matched.Code != openParenToken.Code {
		return nil, cursor.NewError(openParenToken)
	}

	// Capture the value; an empty value is rejected by Validate
	matched = cursor.MatchAny(valueToken, closeParenToken)
	switch matched.Code {
	case valueToken.Code:
		raw := matched.Text(cursor)
		for _, part := range strings.Split(raw, "|") {
			if part = strings.TrimSpace(part); part != "" {
				predicate.Values = append(predicate.Values, part)
			}
		}
	case closeParenToken.Code:
		return predicate, predicate.Validate()
	default:
		return nil, cursor.NewError(valueToken)
	}

	// Match the closing parenthesis
	matched = cursor.MatchOne(closeParenToken)
	if matched.Code != closeParenToken.Code {
		return nil, cursor.NewError(closeParenToken)
	}

	return predicate, predicate.Validate()
}
