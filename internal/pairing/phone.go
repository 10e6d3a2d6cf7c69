package pairing

import (
	"errors"
	"strings"

	"github.com/pairgate/pairgate/pkg/common"
)

var ErrInvalidPhone = errors.New("pairing: invalid phone number")

// NormalizePhone strips everything but digits and validates the remainder as
// an international number. It runs before any resource allocation, so a bad
// number costs nothing.
func NormalizePhone(raw string) (string, error) {
	digits := common.DigitsOnly(raw)
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// FormatPairCode groups the pairing code into 4-character blocks joined by
// dashes, e.g. "ABCDEFGH" -> "ABCD-EFGH".
func FormatPairCode(code string) string {
	code = strings.ReplaceAll(code, "-", "")
	if code == "" {
		return ""
	}
	var groups []string
	for len(code) > 4 {
		groups = append(groups, code[:4])
		code = code[4:]
	}
	groups = append(groups, code)
	return strings.Join(groups, "-")
}
