package lobby

import (
	"math/rand/v2"
	"strings"
)

// CodeAlphabet excludes I and O, which are easy to misread when a code is
// shared verbally or handwritten.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// CodeLength is the number of characters in a lobby code.
const CodeLength = 4

// GenerateCode returns a random lobby code like "QTXB", drawn uniformly
// from CodeAlphabet.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(CodeAlphabet[rand.IntN(len(CodeAlphabet))])
	}
	return b.String()
}

// NormalizeCode trims whitespace and uppercases a user-supplied lobby code
// so "qtxb " matches "QTXB".
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
