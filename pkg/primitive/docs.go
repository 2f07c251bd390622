package primitive

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// extractRichDocument supplements read_file's line-numbered text contract
// with format-aware extraction for document types it would otherwise have
// to return as opaque bytes. handled is false for anything read_file
// should fall through to plain-text reading for.
func extractRichDocument(path string) (text string, handled bool, err error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".pdf"):
		text, err = extractPDF(path)
		return text, true, err
	case strings.HasSuffix(strings.ToLower(path), ".docx"):
		text, err = extractDocx(path)
		return text, true, err
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		text, err = extractXlsx(path)
		return text, true, err
	default:
		return "", false, nil
	}
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, err)
	}
	defer f.Close()

	var out strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&out, "--- page %d ---\n%s\n", i, content)
	}
	return out.String(), nil
}

func extractDocx(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("read docx %s: %w", path, err)
	}
	defer r.Close()
	return r.Editable().GetContent(), nil
}

func extractXlsx(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("read xlsx %s: %w", path, err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		fmt.Fprintf(&out, "--- sheet %s ---\n", sheet)
		for _, row := range rows {
			out.WriteString(strings.Join(row, "\t"))
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}
