package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google/sheets"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Work with Google Sheets",
	Long: `Read and write spreadsheet values.

Spreadsheets may be given as IDs or docs.google.com URLs. Ranges use A1
notation, for example 'Sheet1!A1:C10' or Sheet1.

Rows are read as TSV (or CSV with --csv) from --input, or stdin by default.`,
}

var sheetsInfoCmd = &cobra.Command{
	Use:   "info [spreadsheet]",
	Short: "Show the sheets of a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheetsInfo,
}

var sheetsReadCmd = &cobra.Command{
	Use:   "read [spreadsheet] [range]...",
	Short: "Print cell values",
	Long: `Print the values of one or more ranges. --sheet adds a whole sheet by
title.

Values are printed as displayed. With --typed, numbers, booleans and dates
come back as typed values, which matters for JSON output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSheetsRead,
}

var sheetsWriteCmd = &cobra.Command{
	Use:   "write [spreadsheet] [range]",
	Short: "Overwrite cells with rows from input",
	Long: `Overwrite a range with rows from input. Values are parsed as if typed
into the Sheets UI.

With --sheet instead of a range, rows are written from --start-row (1-based)
in column A and the sheet grows to fit them. Numbers, booleans and formulas
starting with = are sent as such.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSheetsWrite,
}

var sheetsAppendCmd = &cobra.Command{
	Use:   "append [spreadsheet] [range]",
	Short: "Append rows after the table in a range",
	Args:  cobra.ExactArgs(2),
	RunE:  runSheetsAppend,
}

var sheetsClearCmd = &cobra.Command{
	Use:   "clear [spreadsheet] [range]...",
	Short: "Clear the values of one or more ranges",
	Long:  `Clear the values of one or more ranges. --sheet adds a whole sheet by title.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSheetsClear,
}

var sheetsAddSheetCmd = &cobra.Command{
	Use:   "add-sheet [spreadsheet] [title]",
	Short: "Add a sheet",
	Args:  cobra.ExactArgs(2),
	RunE:  runSheetsAddSheet,
}

var sheetsRemoveSheetCmd = &cobra.Command{
	Use:   "remove-sheet [spreadsheet] [title]",
	Short: "Delete a sheet",
	Args:  cobra.ExactArgs(2),
	RunE:  runSheetsRemoveSheet,
}

var sheetsCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheetsCreate,
}

// Flags.
var (
	sheetsTyped    bool
	sheetsInput    string
	sheetsCSV      bool
	sheetsSheet    string
	sheetsStartRow int64
	sheetsRows     int64
	sheetsCols     int64
	sheetsTitles   []string
	sheetsRanges   []string
)

func init() {
	sheetsReadCmd.Flags().BoolVar(&sheetsTyped, "typed", false, "Return typed values instead of display text")
	for _, c := range []*cobra.Command{sheetsReadCmd, sheetsClearCmd} {
		c.Flags().StringSliceVar(&sheetsRanges, "sheet", nil, "Whole sheet by title (repeatable)")
	}

	for _, c := range []*cobra.Command{sheetsWriteCmd, sheetsAppendCmd} {
		c.Flags().StringVarP(&sheetsInput, "input", "i", "-", "File with rows, - for stdin")
		c.Flags().BoolVar(&sheetsCSV, "csv", false, "Input is CSV instead of TSV")
	}
	sheetsWriteCmd.Flags().StringVar(&sheetsSheet, "sheet", "", "Sheet title to write into from column A")
	sheetsWriteCmd.Flags().Int64Var(&sheetsStartRow, "start-row", 1, "First row for --sheet (1-based)")

	sheetsAddSheetCmd.Flags().Int64Var(&sheetsRows, "rows", 0, "Row count (default Sheets default)")
	sheetsAddSheetCmd.Flags().Int64Var(&sheetsCols, "cols", 0, "Column count (default Sheets default)")

	sheetsCreateCmd.Flags().StringSliceVar(&sheetsTitles, "sheet", nil, "Sheet title (repeatable)")

	sheetsCmd.AddCommand(sheetsInfoCmd)
	sheetsCmd.AddCommand(sheetsReadCmd)
	sheetsCmd.AddCommand(sheetsWriteCmd)
	sheetsCmd.AddCommand(sheetsAppendCmd)
	sheetsCmd.AddCommand(sheetsClearCmd)
	sheetsCmd.AddCommand(sheetsAddSheetCmd)
	sheetsCmd.AddCommand(sheetsRemoveSheetCmd)
	sheetsCmd.AddCommand(sheetsCreateCmd)
	rootCmd.AddCommand(sheetsCmd)
}

// openSheets parses the spreadsheet argument and returns a Sheets client.
func openSheets(ctx context.Context, ref string) (*sheets.Client, string, error) {
	id, err := sheets.SpreadsheetIDFromURL(ref)
	if err != nil {
		return nil, "", err
	}
	session, err := openSession(ctx)
	if err != nil {
		return nil, "", err
	}
	return session.Sheets, id, nil
}

// targetRanges returns the range arguments followed by a whole-sheet range
// for every --sheet title.
func targetRanges(args []string) ([]string, error) {
	ranges := append([]string(nil), args...)
	for _, title := range sheetsRanges {
		ranges = append(ranges, sheets.SheetRange(title))
	}
	if len(ranges) == 0 {
		return nil, errors.New("give at least one range or --sheet")
	}
	return ranges, nil
}

// readRows reads TSV or CSV rows from --input.
func readRows() ([][]string, error) {
	var r io.Reader = stdin
	if sheetsInput != "-" && sheetsInput != "" {
		f, err := os.Open(sheetsInput)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return parseRows(r, sheetsCSV)
}

func parseRows(r io.Reader, isCSV bool) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if !isCSV {
		reader.Comma = '\t'
		reader.LazyQuotes = true
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in input: %w", domain.ErrInvalidInput)
	}
	return rows, nil
}

// asValues passes text through for Sheets to parse.
func asValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, cell := range row {
			out[i][j] = cell
		}
	}
	return out
}

// asTyped converts text to numbers and booleans where it parses as one.
// Empty cells become nil and leave the cell blank. Numbers written with
// leading zeros stay text.
func asTyped(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, cell := range row {
			out[i][j] = typedCell(cell)
		}
	}
	return out
}

func typedCell(s string) any {
	switch {
	case s == "":
		return nil
	case strings.EqualFold(s, "true"):
		return true
	case strings.EqualFold(s, "false"):
		return false
	}
	if leadingZero(s) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "xXnN") {
		return f
	}
	return s
}

// leadingZero reports text like 00123 or -07 whose zeros are part of the value.
func leadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}

func runSheetsInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	info, err := client.GetSpreadsheetInfo(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	if format() == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), info)
	}

	cmd.Printf("%s\n%s\n\n", info.Title, info.URL)
	rows := make([][]string, len(info.Sheets))
	for i, s := range info.Sheets {
		rows[i] = []string{
			strconv.FormatInt(s.SheetID, 10),
			s.Title,
			strconv.FormatInt(s.RowCount, 10),
			strconv.FormatInt(s.ColumnCount, 10),
		}
	}
	return render(cmd, []string{"SHEET ID", "TITLE", "ROWS", "COLUMNS"}, rows, info)
}

func runSheetsRead(cmd *cobra.Command, args []string) error {
	ranges, err := targetRanges(args[1:])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	results := make([]sheets.ValueRange, 0, len(ranges))
	if sheetsTyped {
		for _, rng := range ranges {
			values, err := client.GetCellValues(ctx, id, rng)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", rng, err)
			}
			results = append(results, sheets.ValueRange{Range: rng, Values: values})
		}
	} else {
		results, err = client.BatchGetValues(ctx, id, ranges...)
		if err != nil {
			return fmt.Errorf("failed to read values: %w", err)
		}
	}

	if format() == FormatJSON {
		if len(results) == 1 {
			return writeJSON(cmd.OutOrStdout(), results[0])
		}
		return writeJSON(cmd.OutOrStdout(), results)
	}

	for i, vr := range results {
		if len(results) > 1 {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(vr.Range)
		}
		rows := make([][]string, len(vr.Values))
		for r, row := range vr.Values {
			rows[r] = make([]string, len(row))
			for c, v := range row {
				rows[r][c] = stringify(v)
			}
		}
		if err := render(cmd, nil, rows, vr); err != nil {
			return err
		}
	}
	return nil
}

func runSheetsWrite(cmd *cobra.Command, args []string) error {
	if (len(args) == 2) == (sheetsSheet != "") {
		return errors.New("give either a range or --sheet")
	}
	rows, err := readRows()
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	if sheetsSheet == "" {
		result, err := client.UpdateValues(ctx, id, args[1], asValues(rows))
		if err != nil {
			return fmt.Errorf("failed to write values: %w", err)
		}
		cmd.Printf("Updated %d cell(s) in %s\n", result.Cells, result.Range)
		return nil
	}

	if sheetsStartRow < 1 {
		return fmt.Errorf("--start-row must be at least 1: %w", domain.ErrInvalidInput)
	}
	info, err := client.GetSpreadsheetInfo(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	sheet, err := info.Sheet(sheetsSheet)
	if err != nil {
		return fmt.Errorf("sheet %q: %w", sheetsSheet, err)
	}
	if err := client.WriteRows(ctx, id, sheet.SheetID, sheetsStartRow-1, asTyped(rows)); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	width := 1
	for _, row := range rows {
		width = max(width, len(row))
	}
	last := int(sheetsStartRow) + len(rows) - 1
	cmd.Printf("Wrote %d row(s) to %s\n", len(rows),
		sheets.RangeRef(sheet.Title, int(sheetsStartRow), 1, last, width))
	return nil
}

func runSheetsAppend(cmd *cobra.Command, args []string) error {
	rows, err := readRows()
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	result, err := client.AppendRows(ctx, id, args[1], asValues(rows))
	if err != nil {
		return fmt.Errorf("failed to append rows: %w", err)
	}
	cmd.Printf("Appended %d row(s) at %s\n", result.Rows, result.Range)
	return nil
}

func runSheetsClear(cmd *cobra.Command, args []string) error {
	ranges, err := targetRanges(args[1:])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	cleared, err := client.ClearRanges(ctx, id, ranges...)
	if err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	for _, rng := range cleared {
		cmd.Printf("Cleared %s\n", rng)
	}
	return nil
}

func runSheetsAddSheet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	sheet, err := client.AddSheet(ctx, id, args[1], sheetsRows, sheetsCols)
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	cmd.Printf("Added sheet %s (%d)\n", sheet.Title, sheet.SheetID)
	return nil
}

func runSheetsRemoveSheet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, id, err := openSheets(ctx, args[0])
	if err != nil {
		return err
	}

	info, err := client.GetSpreadsheetInfo(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	sheet, err := info.Sheet(args[1])
	if err != nil {
		return fmt.Errorf("sheet %q: %w", args[1], err)
	}
	if err := client.DeleteSheet(ctx, id, sheet.SheetID); err != nil {
		return fmt.Errorf("failed to delete sheet: %w", err)
	}
	cmd.Printf("Deleted sheet %s\n", sheet.Title)
	return nil
}

func runSheetsCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	session, err := openSession(ctx)
	if err != nil {
		return err
	}

	info, err := session.Sheets.CreateSpreadsheet(ctx, args[0], sheetsTitles...)
	if err != nil {
		return fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	if format() == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), info)
	}
	cmd.Printf("%s\t%s\n", info.ID, info.URL)
	return nil
}
