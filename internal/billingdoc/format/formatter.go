package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const (
	DefaultInvoiceNumberTemplate    = "INV-{YYYY}-{SEQ5}"
	DefaultCreditNoteNumberTemplate = "CN-{YYYY}-{SEQ5}"
)

// FormatDocumentNumber renders a document number from a template, the
// issuing year, and the allocated sequence.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func FormatDocumentNumber(template string, year int, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("document number template is empty")
	}
	if year < 1 {
		return "", fmt.Errorf("invalid document year: %d", year)
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}

	out := template

	out = strings.ReplaceAll(out, "{YYYY}", fmt.Sprintf("%04d", year))
	out = strings.ReplaceAll(out, "{YY}", fmt.Sprintf("%02d", year%100))

	// Simple sequence
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	// Padded sequence
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m // should never happen
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	// Final safety check: unresolved tokens
	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in document number format: %s", out)
	}

	return out, nil
}
