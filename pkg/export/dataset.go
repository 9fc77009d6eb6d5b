package export

import (
	"fmt"
	"strconv"
	"time"
)

// Format identifies an export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps user input onto a known Format. Empty input selects xlsx.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Dataset defines tabular export content. Cells hold string, int, float64 or time.Time values.
type Dataset struct {
	SheetName string
	Headers   []string
	Rows      [][]interface{}
}

// Renderer encodes a Dataset into a file payload.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// FormatCell renders a cell for text-only encodings.
func FormatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}

func validate(data Dataset, kind string) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	for i, row := range data.Rows {
		if len(row) > len(data.Headers) {
			return fmt.Errorf("%s row %d has %d cells for %d headers", kind, i, len(row), len(data.Headers))
		}
	}
	return nil
}
