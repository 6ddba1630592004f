package sheet

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/xuri/excelize/v2"
)

// timeOnlyLayout renders cells whose value has no date part.
const timeOnlyLayout = "15:04:05"

// builtinDateFormats are the predefined number format ids that display a
// date or a time.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true,
	21: true, 22: true, 45: true, 46: true, 47: true,
}

// quotedOrEscaped strips literals from a custom format before looking for
// date tokens, so "0.00 \d" or `"days"` are not mistaken for dates.
var quotedOrEscaped = regexp.MustCompile(`"[^"]*"|\\.|\[[^\]]*\]`)

// ReadXLSX reads the named worksheet of an xlsx workbook.
func ReadXLSX(r io.Reader, sheet string) (*core.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(raw) == 0 {
		return &core.Table{}, nil
	}

	c := &cellConverter{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}

	header := raw[0]
	records := make([][]any, 0, len(raw)-1)
	for r, cells := range raw[1:] {
		rec := make([]any, len(cells))
		for col, value := range cells {
			v, err := c.convert(col+1, r+2, value)
			if err != nil {
				return nil, err
			}
			rec[col] = v
		}
		records = append(records, rec)
	}

	return buildTable(header, records), nil
}

// cellConverter types raw cell values using the cell type and style.
type cellConverter struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (c *cellConverter) convert(col, row int, raw string) (any, error) {
	if raw == "" {
		return "", nil
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := c.f.GetCellType(c.sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("cell %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		num, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, nil
		}
		if c.isDateCell(ref) {
			return c.formatSerial(num)
		}
		return json.Number(strconv.FormatFloat(num, 'f', -1, 64)), nil
	default:
		return raw, nil
	}
}

func (c *cellConverter) formatSerial(serial float64) (any, error) {
	t, err := excelize.ExcelDateToTime(serial, c.date1904)
	if err != nil {
		return nil, fmt.Errorf("convert date serial %v: %w", serial, err)
	}
	if serial < 1 {
		return t.Format(timeOnlyLayout), nil
	}
	return core.FormatDateTime(t), nil
}

// isDateCell reports whether the cell's number format displays a date.
// Results are cached per style id.
func (c *cellConverter) isDateCell(ref string) bool {
	styleID, err := c.f.GetCellStyle(c.sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := c.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := c.f.GetStyle(styleID); err == nil && style != nil {
		switch {
		case builtinDateFormats[style.NumFmt]:
			isDate = true
		case style.CustomNumFmt != nil:
			isDate = IsDateFormat(*style.CustomNumFmt)
		}
	}
	c.dateStyles[styleID] = isDate
	return isDate
}

// IsDateFormat reports whether a custom number format code displays a date
// or a time.
func IsDateFormat(code string) bool {
	code = quotedOrEscaped.ReplaceAllString(code, "")
	// Only the positive section decides.
	code, _, _ = strings.Cut(code, ";")
	return strings.ContainsAny(strings.ToLower(code), "dmyhs")
}
