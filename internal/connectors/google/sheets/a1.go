package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

var (
	spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/(?:u/\d+/)?d/([a-zA-Z0-9_-]+)`)
	spreadsheetIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
	columnPattern         = regexp.MustCompile(`^[A-Za-z]{1,3}$`)
	plainSheetName        = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	cellLikeName          = regexp.MustCompile(`^(?:[A-Za-z]{1,3}[0-9]+|[Rr][0-9]*[Cc][0-9]*|[0-9].*)$`)
)

// SpreadsheetIDFromURL extracts the spreadsheet ID from a Sheets URL.
// A bare spreadsheet ID is returned unchanged.
func SpreadsheetIDFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if m := spreadsheetURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if spreadsheetIDPattern.MatchString(raw) {
		return raw, nil
	}
	return "", fmt.Errorf("invalid spreadsheet URL %q: %w", raw, domain.ErrInvalidInput)
}

// ColumnName returns the A1 letters for a 1-based column number:
// 1 is A, 26 is Z, 27 is AA.
func ColumnName(n int) string {
	if n < 1 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// ColumnIndex returns the 1-based column number for A1 letters.
func ColumnIndex(name string) (int, error) {
	if !columnPattern.MatchString(name) {
		return 0, fmt.Errorf("invalid column %q: %w", name, domain.ErrInvalidInput)
	}
	n := 0
	for _, r := range strings.ToUpper(name) {
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// CellRef returns the A1 reference of a 1-based row and column, e.g. B3.
func CellRef(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// QuoteSheetName quotes a sheet title for use in a range when it contains
// anything other than letters, digits and underscores, or when it would
// read as a cell reference (Q1, FY2024, R1C1) or starts with a digit.
func QuoteSheetName(title string) string {
	if plainSheetName.MatchString(title) && !cellLikeName.MatchString(title) {
		return title
	}
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// RangeRef returns an A1 range such as 'My Sheet'!A1:C10. Rows and columns
// are 1-based.
func RangeRef(sheet string, row1, col1, row2, col2 int) string {
	ref := CellRef(row1, col1) + ":" + CellRef(row2, col2)
	if sheet == "" {
		return ref
	}
	return QuoteSheetName(sheet) + "!" + ref
}

// SheetRange returns a range covering a whole sheet.
func SheetRange(sheet string) string {
	return QuoteSheetName(sheet)
}
