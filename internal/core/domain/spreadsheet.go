package domain

// SpreadsheetInfo is the flattened metadata of a spreadsheet.
type SpreadsheetInfo struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	URL    string      `json:"url"`
	Locale string      `json:"locale,omitempty"`
	Sheets []SheetInfo `json:"sheets"`
}

// SheetInfo is the flattened metadata of a single sheet (tab).
type SheetInfo struct {
	SheetID     int64  `json:"sheet_id"`
	Title       string `json:"title"`
	Index       int64  `json:"index"`
	RowCount    int64  `json:"row_count"`
	ColumnCount int64  `json:"column_count"`
}

// Sheet returns the sheet with the given title.
func (s *SpreadsheetInfo) Sheet(title string) (*SheetInfo, error) {
	for i := range s.Sheets {
		if s.Sheets[i].Title == title {
			return &s.Sheets[i], nil
		}
	}
	return nil, ErrSheetNotFound
}
