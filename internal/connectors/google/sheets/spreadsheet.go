package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

const infoFields = "spreadsheetId,spreadsheetUrl,properties(title,locale)," +
	"sheets(properties(sheetId,title,index,gridProperties(rowCount,columnCount)))"

func toSheetInfo(p *sheets.SheetProperties) domain.SheetInfo {
	if p == nil {
		return domain.SheetInfo{}
	}
	info := domain.SheetInfo{
		SheetID: p.SheetId,
		Title:   p.Title,
		Index:   p.Index,
	}
	if p.GridProperties != nil {
		info.RowCount = p.GridProperties.RowCount
		info.ColumnCount = p.GridProperties.ColumnCount
	}
	return info
}

func toSpreadsheetInfo(s *sheets.Spreadsheet) *domain.SpreadsheetInfo {
	info := &domain.SpreadsheetInfo{
		ID:  s.SpreadsheetId,
		URL: s.SpreadsheetUrl,
	}
	if s.Properties != nil {
		info.Title = s.Properties.Title
		info.Locale = s.Properties.Locale
	}
	for _, sh := range s.Sheets {
		info.Sheets = append(info.Sheets, toSheetInfo(sh.Properties))
	}
	return info
}

// GetSpreadsheetInfo returns the title, locale and sheets of a spreadsheet.
func (c *Client) GetSpreadsheetInfo(ctx context.Context, id string) (*domain.SpreadsheetInfo, error) {
	var s *sheets.Spreadsheet
	err := c.call(ctx, "spreadsheets.get "+id, func() (err error) {
		s, err = c.svc.Spreadsheets.Get(id).Fields(googleapi.Field(infoFields)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", id, err)
	}
	return toSpreadsheetInfo(s), nil
}

// FindSheetByTitle returns the sheet with the given title.
func FindSheetByTitle(info *domain.SpreadsheetInfo, title string) (*domain.SheetInfo, error) {
	if info == nil {
		return nil, domain.ErrSheetNotFound
	}
	return info.Sheet(title)
}

func (c *Client) batchUpdate(
	ctx context.Context, id string, reqs []*sheets.Request,
) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	var resp *sheets.BatchUpdateSpreadsheetResponse
	err := c.call(ctx, fmt.Sprintf("spreadsheets.batchUpdate %s (%d request(s))", id, len(reqs)), func() (err error) {
		resp, err = c.svc.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).
			Context(ctx).
			Do()
		return err
	})
	return resp, err
}

// AddSheet adds a sheet with the given grid size. Zero sizes keep the
// Sheets defaults.
func (c *Client) AddSheet(ctx context.Context, id, title string, rows, cols int64) (*domain.SheetInfo, error) {
	if title == "" {
		return nil, fmt.Errorf("add sheet: %w", domain.ErrInvalidInput)
	}

	props := &sheets.SheetProperties{Title: title}
	if rows > 0 || cols > 0 {
		props.GridProperties = &sheets.GridProperties{RowCount: rows, ColumnCount: cols}
	}

	resp, err := c.batchUpdate(ctx, id, []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: props}}})
	if err != nil {
		return nil, fmt.Errorf("add sheet %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return nil, fmt.Errorf("add sheet %q: empty reply", title)
	}

	info := toSheetInfo(resp.Replies[0].AddSheet.Properties)
	return &info, nil
}

// DeleteSheet removes a sheet by its numeric ID.
func (c *Client) DeleteSheet(ctx context.Context, id string, sheetID int64) error {
	req := &sheets.Request{DeleteSheet: &sheets.DeleteSheetRequest{
		SheetId:         sheetID,
		ForceSendFields: []string{"SheetId"},
	}}
	if _, err := c.batchUpdate(ctx, id, []*sheets.Request{req}); err != nil {
		return fmt.Errorf("delete sheet %d: %w", sheetID, err)
	}
	return nil
}

// CreateSpreadsheet creates a spreadsheet. Without sheet titles Sheets adds
// its default first sheet.
func (c *Client) CreateSpreadsheet(ctx context.Context, title string, sheetTitles ...string) (*domain.SpreadsheetInfo, error) {
	req := &sheets.Spreadsheet{Properties: &sheets.SpreadsheetProperties{Title: title}}
	for _, t := range sheetTitles {
		req.Sheets = append(req.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: t}})
	}

	var s *sheets.Spreadsheet
	err := c.call(ctx, "spreadsheets.create "+title, func() (err error) {
		s, err = c.svc.Spreadsheets.Create(req).Fields(googleapi.Field(infoFields)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create spreadsheet %q: %w", title, err)
	}
	return toSpreadsheetInfo(s), nil
}
