// pkg/workbook/workbook.go
package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

// Reader opens a spreadsheet workbook (.xlsx/.xlsm) and reads worksheets
// into row-oriented Sheet structures.
type Reader struct {
	f      *excelize.File
	path   string
	logger *zap.Logger
}

// Open opens the workbook at path
func Open(path string) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	return &Reader{
		f:      f,
		path:   path,
		logger: zap.L().Named("workbook"),
	}, nil
}

// Close releases the underlying file
func (r *Reader) Close() error {
	return r.f.Close()
}

// Path returns the workbook file path
func (r *Reader) Path() string {
	return r.path
}

// SheetNames lists the worksheets in the workbook
func (r *Reader) SheetNames() []string {
	return r.f.GetSheetList()
}

// FindSheet returns the first candidate sheet name that exists in the
// workbook. With no candidates, or when none match, it falls back to the
// first sheet. Source files name their sheets inconsistently ("Bullient  "
// style trailing spaces included), so matching ignores case and
// surrounding whitespace.
func (r *Reader) FindSheet(candidates []string) (string, error) {
	sheets := r.f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", r.path)
	}

	for _, want := range candidates {
		for _, have := range sheets {
			if strings.EqualFold(strings.TrimSpace(have), strings.TrimSpace(want)) {
				return have, nil
			}
		}
	}

	if len(candidates) > 0 {
		r.logger.Debug("No candidate sheet matched, using first sheet",
			zap.String("workbook", r.path),
			zap.Strings("candidates", candidates),
			zap.String("sheet", sheets[0]))
	}
	return sheets[0], nil
}

// ReadSheet reads a worksheet into a Sheet. The first row containing at
// least two non-empty cells is taken as the header row; rows above it are
// discarded. Fully empty columns are dropped, duplicate headers are
// suffixed with a counter, and trailing blank rows are trimmed. limit caps
// the number of data rows returned (0 = unlimited).
func (r *Reader) ReadSheet(name string, limit int) (*model.Sheet, error) {
	rows, err := r.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}

	headerRow := findHeaderRow(rows)
	if headerRow < 0 {
		return nil, fmt.Errorf("sheet %s contains no header row", name)
	}

	rawHeaders := rows[headerRow]
	data := rows[headerRow+1:]

	// Trim trailing blank rows before applying the row limit
	last := len(data)
	for last > 0 && rowIsEmpty(data[last-1]) {
		last--
	}
	data = data[:last]

	if limit > 0 && len(data) > limit {
		r.logger.Debug("Applying row limit",
			zap.String("sheet", name),
			zap.Int("rows", len(data)),
			zap.Int("limit", limit))
		data = data[:limit]
	}

	keep := keepColumns(rawHeaders, data)
	headers := dedupeHeaders(rawHeaders, keep)

	sheet := &model.Sheet{
		Name:    name,
		Headers: headers,
		Rows:    make([][]string, 0, len(data)),
	}

	for _, row := range data {
		out := make([]string, len(keep))
		for i, col := range keep {
			if col < len(row) {
				out[i] = row[col]
			}
		}
		sheet.Rows = append(sheet.Rows, out)
	}

	r.logger.Info("Read sheet",
		zap.String("workbook", r.path),
		zap.String("sheet", name),
		zap.Int("columns", len(sheet.Headers)),
		zap.Int("rows", len(sheet.Rows)))

	return sheet, nil
}

// findHeaderRow returns the index of the first row with at least two
// non-empty cells, or -1 when the sheet is empty
func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		nonEmpty := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
			if nonEmpty >= 2 {
				return i
			}
		}
	}
	return -1
}

// rowIsEmpty reports whether every cell in the row is blank
func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// keepColumns returns the source column indexes that survive the empty
// column drop: a column is kept when its header or any of its values is
// non-blank
func keepColumns(headers []string, data [][]string) []int {
	width := len(headers)
	for _, row := range data {
		if len(row) > width {
			width = len(row)
		}
	}

	keep := make([]int, 0, width)
	for col := 0; col < width; col++ {
		header := ""
		if col < len(headers) {
			header = headers[col]
		}
		if strings.TrimSpace(header) != "" {
			keep = append(keep, col)
			continue
		}
		for _, row := range data {
			if col < len(row) && strings.TrimSpace(row[col]) != "" {
				keep = append(keep, col)
				break
			}
		}
	}
	return keep
}

// dedupeHeaders trims kept headers, names blank ones by position, and
// suffixes collisions with a counter so headers stay unique
func dedupeHeaders(rawHeaders []string, keep []int) []string {
	headers := make([]string, 0, len(keep))
	seen := make(map[string]int)

	for i, col := range keep {
		h := ""
		if col < len(rawHeaders) {
			h = strings.TrimSpace(rawHeaders[col])
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}

		key := strings.ToLower(h)
		seen[key]++
		if n := seen[key]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers = append(headers, h)
	}
	return headers
}
