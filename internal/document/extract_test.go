package document

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sunto-go/internal/types"
)

func TestExtractPlainText(t *testing.T) {
	text, err := Extract("notes.md", strings.NewReader("\xef\xbb\xbf# Riunione\r\nPunto uno"))

	require.NoError(t, err)
	assert.Equal(t, "# Riunione\nPunto uno", text)
}

func TestExtractUnknownExtensionStillNeedsText(t *testing.T) {
	text, err := Extract("README", strings.NewReader("ciao"))
	require.NoError(t, err)
	assert.Equal(t, "ciao", text)

	_, err = Extract("blob.bin", bytes.NewReader([]byte{0xff, 0xfe, 0x00, 0x01}))
	assert.True(t, types.IsKind(err, types.KindUnsupportedDocument))
}

func TestExtractRejectsBinaryOfficeFormats(t *testing.T) {
	_, err := Extract("report.PDF", strings.NewReader("%PDF-1.7"))
	assert.True(t, types.IsKind(err, types.KindUnsupportedDocument))
}

func TestExtractEmpty(t *testing.T) {
	_, err := Extract("empty.txt", strings.NewReader(" \n\t"))
	assert.True(t, types.IsKind(err, types.KindEmptyTranscription))
}

func TestExtractSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Nome", "Ruolo"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Anna", "PM"}))
	_, err := f.NewSheet("Vuoto")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	text, err := Extract("team.xlsx", &buf)

	require.NoError(t, err)
	assert.Equal(t, "# Sheet1\nNome\tRuolo\nAnna\tPM", text)
}

func TestExtractSpreadsheetCorrupt(t *testing.T) {
	_, err := Extract("broken.xlsx", strings.NewReader("not a zip"))
	assert.True(t, types.IsKind(err, types.KindUnsupportedDocument))
}
