package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDocumentNumber(t *testing.T) {
	got, err := FormatDocumentNumber(DefaultInvoiceNumberTemplate, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-00001", got)

	got, err = FormatDocumentNumber(DefaultCreditNoteNumberTemplate, 2024, 42)
	require.NoError(t, err)
	assert.Equal(t, "CN-2024-00042", got)

	// Wide sequences outgrow the pad instead of truncating.
	got, err = FormatDocumentNumber(DefaultInvoiceNumberTemplate, 2024, 123456)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-123456", got)
}

func TestFormatDocumentNumber_Invalid(t *testing.T) {
	_, err := FormatDocumentNumber("", 2024, 1)
	assert.Error(t, err)

	_, err = FormatDocumentNumber(DefaultInvoiceNumberTemplate, 2024, 0)
	assert.Error(t, err)

	_, err = FormatDocumentNumber("INV-{BOGUS}", 2024, 1)
	assert.Error(t, err)
}
