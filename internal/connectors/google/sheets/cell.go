package sheets

import (
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/api/sheets/v4"
)

// Formula is a cell value written as a formula even when it lacks a leading "=".
type Formula string

// CellError is an error value computed by a formula, e.g. #DIV/0!.
type CellError struct {
	Type    string
	Message string
}

func (e CellError) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// DateTimePattern is the number format applied to written time values.
const DateTimePattern = "yyyy-mm-dd hh:mm:ss"

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// TimeToSerial converts a time to a spreadsheet serial number: days since
// 1899-12-30 with the time of day as the fraction. The wall clock of t is used.
func TimeToSerial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return wall.Sub(serialEpoch).Hours() / 24
}

// SerialToTime converts a spreadsheet serial number to a UTC time, rounded to
// the millisecond.
func SerialToTime(serial float64) time.Time {
	ms := math.Round(serial * 24 * float64(time.Hour/time.Millisecond))
	return serialEpoch.Add(time.Duration(ms) * time.Millisecond)
}

// ToCellData converts a Go value into the cell written by WriteRows.
func ToCellData(v any) (*sheets.CellData, error) {
	ev := &sheets.ExtendedValue{}
	cell := &sheets.CellData{UserEnteredValue: ev}

	switch val := v.(type) {
	case nil:
		return &sheets.CellData{}, nil
	case Formula:
		f := string(val)
		if !strings.HasPrefix(f, "=") {
			f = "=" + f
		}
		ev.FormulaValue = &f
	case string:
		if strings.HasPrefix(val, "=") {
			ev.FormulaValue = &val
		} else {
			ev.StringValue = &val
		}
	case bool:
		ev.BoolValue = &val
	case time.Time:
		serial := TimeToSerial(val)
		ev.NumberValue = &serial
		cell.UserEnteredFormat = &sheets.CellFormat{
			NumberFormat: &sheets.NumberFormat{Type: "DATE_TIME", Pattern: DateTimePattern},
		}
	case int:
		setNumber(ev, float64(val))
	case int8:
		setNumber(ev, float64(val))
	case int16:
		setNumber(ev, float64(val))
	case int32:
		setNumber(ev, float64(val))
	case int64:
		setNumber(ev, float64(val))
	case uint:
		setNumber(ev, float64(val))
	case uint8:
		setNumber(ev, float64(val))
	case uint16:
		setNumber(ev, float64(val))
	case uint32:
		setNumber(ev, float64(val))
	case uint64:
		setNumber(ev, float64(val))
	case float32:
		setNumber(ev, float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("cannot write %v to a cell", val)
		}
		setNumber(ev, val)
	case fmt.Stringer:
		s := val.String()
		ev.StringValue = &s
	default:
		return nil, fmt.Errorf("unsupported cell value of type %T", v)
	}

	return cell, nil
}

func setNumber(ev *sheets.ExtendedValue, f float64) {
	ev.NumberValue = &f
}

// ToRowData converts rows of Go values into row data.
func ToRowData(rows [][]any) ([]*sheets.RowData, error) {
	out := make([]*sheets.RowData, len(rows))
	for i, row := range rows {
		rd := &sheets.RowData{Values: make([]*sheets.CellData, len(row))}
		for j, v := range row {
			cell, err := ToCellData(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			rd.Values[j] = cell
		}
		out[i] = rd
	}
	return out, nil
}

// CellValue converts a cell read with grid data into a Go value: nil, string,
// float64, bool, time.Time for date and time formats, or CellError. Formulas
// are returned as their source text starting with "=".
func CellValue(cell *sheets.CellData) any {
	if cell == nil {
		return nil
	}
	if uv := cell.UserEnteredValue; uv != nil && uv.FormulaValue != nil {
		return *uv.FormulaValue
	}

	ev := cell.EffectiveValue
	if ev == nil {
		ev = cell.UserEnteredValue
	}
	if ev == nil {
		return nil
	}

	switch {
	case ev.ErrorValue != nil:
		return CellError{Type: ev.ErrorValue.Type, Message: ev.ErrorValue.Message}
	case ev.NumberValue != nil:
		if isDateFormat(cell) {
			return SerialToTime(*ev.NumberValue)
		}
		return *ev.NumberValue
	case ev.BoolValue != nil:
		return *ev.BoolValue
	case ev.StringValue != nil:
		return *ev.StringValue
	default:
		return nil
	}
}

func isDateFormat(cell *sheets.CellData) bool {
	for _, f := range []*sheets.CellFormat{cell.EffectiveFormat, cell.UserEnteredFormat} {
		if f == nil || f.NumberFormat == nil {
			continue
		}
		switch f.NumberFormat.Type {
		case "DATE", "TIME", "DATE_TIME":
			return true
		}
	}
	return false
}
