package sharing

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// CodeLength is the number of characters in every share code.
const CodeLength = 8

// CodeGenerator produces candidate share codes.
type CodeGenerator interface {
	NewCode() (string, error)
}

type randomCodeGenerator struct{}

// NewRandomCodeGenerator returns a generator drawing upper-case hex codes from crypto/rand.
func NewRandomCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

func (randomCodeGenerator) NewCode() (string, error) {
	buffer := make([]byte, CodeLength/2)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buffer)), nil
}

// NormalizeCode trims and upper-cases a caller-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
