// Package document turns already-textual uploads into plain text without
// contacting any provider.
package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"sunto-go/internal/types"
)

const (
	msgUnsupported = "Formato del documento non supportato. Usa un file di testo (.txt, .md, .csv) o un foglio .xlsx."
	msgEmpty       = "Il documento non contiene testo."
	msgRead        = "Errore durante la lettura del file"
)

// Extract returns the text content of the named document.
func Extract(name string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return extractSpreadsheet(r)
	case ".pdf", ".docx", ".doc":
		return "", types.Errorf(types.KindUnsupportedDocument, msgUnsupported)
	default:
		return extractText(r)
	}
}

func extractText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", types.Wrap(types.KindInternal, msgRead, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", types.Errorf(types.KindUnsupportedDocument, msgUnsupported)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return "", types.Errorf(types.KindEmptyTranscription, msgEmpty)
	}
	return text, nil
}

// extractSpreadsheet renders every sheet as a titled block of
// tab-separated rows.
func extractSpreadsheet(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", types.Wrap(types.KindUnsupportedDocument, msgUnsupported, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", types.Wrap(types.KindUnsupportedDocument, msgUnsupported, fmt.Errorf("read rows of %s: %w", sheet, err))
		}
		var lines []string
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("# " + sheet + "\n")
		sb.WriteString(strings.Join(lines, "\n"))
	}
	if sb.Len() == 0 {
		return "", types.Errorf(types.KindEmptyTranscription, msgEmpty)
	}
	return sb.String(), nil
}
