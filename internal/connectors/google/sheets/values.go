package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// Value input options.
const (
	InputUserEntered = "USER_ENTERED"
	InputRaw         = "RAW"
)

const (
	gridFields   = "sheets(data(startRow,startColumn,rowData(values(userEnteredValue,effectiveValue,effectiveFormat.numberFormat,userEnteredFormat.numberFormat))))"
	updateFields = "userEnteredValue,userEnteredFormat.numberFormat"
)

// ValueRange is a block of values read from one range.
type ValueRange struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

// UpdateResult reports what a write touched.
type UpdateResult struct {
	Range string `json:"range"`
	Rows  int64  `json:"rows"`
	Cells int64  `json:"cells"`
}

// GetValues returns the formatted values of a range. Trailing empty rows and
// cells are omitted by the API.
func (c *Client) GetValues(ctx context.Context, id, rng string) ([][]any, error) {
	var vr *sheets.ValueRange
	err := c.call(ctx, "values.get "+rng, func() (err error) {
		vr, err = c.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get values %s: %w", rng, err)
	}
	return vr.Values, nil
}

// BatchGetValues reads several ranges in one call, in request order.
func (c *Client) BatchGetValues(ctx context.Context, id string, ranges ...string) ([]ValueRange, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	var resp *sheets.BatchGetValuesResponse
	err := c.call(ctx, fmt.Sprintf("values.batchGet %d range(s)", len(ranges)), func() (err error) {
		resp, err = c.svc.Spreadsheets.Values.BatchGet(id).Ranges(ranges...).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("batch get values: %w", err)
	}

	out := make([]ValueRange, 0, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		out = append(out, ValueRange{Range: vr.Range, Values: vr.Values})
	}
	return out, nil
}

// GetCellValues reads a range with grid data and returns typed values as
// produced by CellValue.
func (c *Client) GetCellValues(ctx context.Context, id, rng string) ([][]any, error) {
	var s *sheets.Spreadsheet
	err := c.call(ctx, "spreadsheets.get grid "+rng, func() (err error) {
		s, err = c.svc.Spreadsheets.Get(id).
			Ranges(rng).
			IncludeGridData(true).
			Fields(googleapi.Field(gridFields)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get cells %s: %w", rng, err)
	}
	if len(s.Sheets) == 0 || len(s.Sheets[0].Data) == 0 {
		return nil, nil
	}

	data := s.Sheets[0].Data[0]
	rows := make([][]any, len(data.RowData))
	for i, rd := range data.RowData {
		row := make([]any, len(rd.Values))
		for j, cell := range rd.Values {
			row[j] = CellValue(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

// WriteRows writes rows of Go values into a sheet starting at the zero-based
// startRow, column A. The grid is extended first when it is too small, and
// the rows are sent in as many batchUpdate calls as needed to keep each one
// under Config.WriteBatchCells cells.
func (c *Client) WriteRows(ctx context.Context, id string, sheetID, startRow int64, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if startRow < 0 {
		return fmt.Errorf("write rows: negative start row: %w", domain.ErrInvalidInput)
	}

	data, err := ToRowData(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	info, err := c.GetSpreadsheetInfo(ctx, id)
	if err != nil {
		return err
	}
	sheet, err := sheetByID(info, sheetID)
	if err != nil {
		return err
	}

	reqs := growRequests(sheet, startRow+int64(len(rows)), int64(maxWidth(rows)))

	limit := c.cfg.WriteBatchCells
	if limit <= 0 {
		limit = DefaultWriteBatchCells
	}

	chunks := 0
	for start := 0; start < len(data); {
		end, cells := start, 0
		for end < len(data) {
			n := len(data[end].Values)
			if end > start && cells+n > limit {
				break
			}
			cells += n
			end++
		}

		reqs = append(reqs, &sheets.Request{UpdateCells: &sheets.UpdateCellsRequest{
			Start: &sheets.GridCoordinate{
				SheetId:         sheetID,
				RowIndex:        startRow + int64(start),
				ColumnIndex:     0,
				ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
			},
			Rows:   data[start:end],
			Fields: updateFields,
		}})

		if _, err := c.batchUpdate(ctx, id, reqs); err != nil {
			return fmt.Errorf("write rows %d-%d: %w", startRow+int64(start)+1, startRow+int64(end), err)
		}
		chunks++
		reqs = nil
		start = end
	}

	logger.Debug("Wrote %d row(s) to sheet %d in %d batch(es)", len(rows), sheetID, chunks)
	return nil
}

func sheetByID(info *domain.SpreadsheetInfo, sheetID int64) (*domain.SheetInfo, error) {
	for i := range info.Sheets {
		if info.Sheets[i].SheetID == sheetID {
			return &info.Sheets[i], nil
		}
	}
	return nil, fmt.Errorf("sheet %d: %w", sheetID, domain.ErrSheetNotFound)
}

// growRequests appends rows and columns so the grid holds rows x cols.
func growRequests(sheet *domain.SheetInfo, rows, cols int64) []*sheets.Request {
	var reqs []*sheets.Request
	if rows > sheet.RowCount {
		reqs = append(reqs, appendDimension(sheet.SheetID, "ROWS", rows-sheet.RowCount))
	}
	if cols > sheet.ColumnCount {
		reqs = append(reqs, appendDimension(sheet.SheetID, "COLUMNS", cols-sheet.ColumnCount))
	}
	return reqs
}

func appendDimension(sheetID int64, dimension string, length int64) *sheets.Request {
	return &sheets.Request{AppendDimension: &sheets.AppendDimensionRequest{
		SheetId:         sheetID,
		Dimension:       dimension,
		Length:          length,
		ForceSendFields: []string{"SheetId"},
	}}
}

func maxWidth(rows [][]any) int {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	return width
}

// AppendRows appends rows after the table found in rng, inserting new rows.
// Values are parsed as if typed by a user.
func (c *Client) AppendRows(ctx context.Context, id, rng string, rows [][]any) (*UpdateResult, error) {
	var resp *sheets.AppendValuesResponse
	err := c.call(ctx, "values.append "+rng, func() (err error) {
		resp, err = c.svc.Spreadsheets.Values.Append(id, rng, &sheets.ValueRange{Values: toValues(rows)}).
			ValueInputOption(InputUserEntered).
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("append rows to %s: %w", rng, err)
	}
	return toUpdateResult(resp.Updates), nil
}

// UpdateValues overwrites the values of a range.
func (c *Client) UpdateValues(ctx context.Context, id, rng string, rows [][]any) (*UpdateResult, error) {
	var resp *sheets.UpdateValuesResponse
	err := c.call(ctx, "values.update "+rng, func() (err error) {
		resp, err = c.svc.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: toValues(rows)}).
			ValueInputOption(InputUserEntered).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update values %s: %w", rng, err)
	}
	return toUpdateResult(resp), nil
}

// ClearRanges clears the values of several ranges, keeping formatting.
func (c *Client) ClearRanges(ctx context.Context, id string, ranges ...string) ([]string, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	var resp *sheets.BatchClearValuesResponse
	err := c.call(ctx, "values.batchClear "+strings.Join(ranges, ","), func() (err error) {
		resp, err = c.svc.Spreadsheets.Values.BatchClear(id, &sheets.BatchClearValuesRequest{Ranges: ranges}).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("clear ranges: %w", err)
	}
	return resp.ClearedRanges, nil
}

func toUpdateResult(r *sheets.UpdateValuesResponse) *UpdateResult {
	if r == nil {
		return &UpdateResult{}
	}
	return &UpdateResult{Range: r.UpdatedRange, Rows: r.UpdatedRows, Cells: r.UpdatedCells}
}

// toValues prepares rows for the values API, which takes plain JSON values.
func toValues(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			switch val := v.(type) {
			case nil:
				vals[j] = ""
			case Formula:
				f := string(val)
				if !strings.HasPrefix(f, "=") {
					f = "=" + f
				}
				vals[j] = f
			case time.Time:
				vals[j] = val.Format("2006-01-02 15:04:05")
			case fmt.Stringer:
				vals[j] = val.String()
			default:
				vals[j] = v
			}
		}
		out[i] = vals
	}
	return out
}
