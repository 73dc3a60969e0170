// Package regions maps GTAP region codes to their long names.
package regions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook layout.
const (
	Sheet      = "regions"
	CodeColumn = "GTAP Region Code"
	NameColumn = "Long Name"
)

// Names is a code -> long name lookup. The zero value is empty and usable.
type Names struct {
	byCode map[string]string
}

// New builds a lookup from a code -> name map.
func New(m map[string]string) *Names {
	byCode := make(map[string]string, len(m))
	for k, v := range m {
		byCode[k] = v
	}
	return &Names{byCode: byCode}
}

// LoadXLSX reads the region sheet of a workbook.
func LoadXLSX(path string) (*Names, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open region names: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", Sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", Sheet)
	}

	codeCol, nameCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case CodeColumn:
			codeCol = i
		case NameColumn:
			nameCol = i
		}
	}
	if codeCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("sheet %q needs columns %q and %q", Sheet, CodeColumn, NameColumn)
	}

	n := &Names{byCode: make(map[string]string, len(rows)-1)}
	for _, row := range rows[1:] {
		if codeCol >= len(row) {
			continue
		}
		code := strings.TrimSpace(row[codeCol])
		if code == "" {
			continue
		}
		// GetRows drops trailing empty cells.
		var name string
		if nameCol < len(row) {
			name = strings.TrimSpace(row[nameCol])
		}
		if _, seen := n.byCode[code]; !seen {
			n.byCode[code] = name
		}
	}
	return n, nil
}

// Name returns the long name of code, or the code itself when unknown.
func (n *Names) Name(code string) string {
	if n == nil {
		return code
	}
	if name, ok := n.byCode[code]; ok && name != "" {
		return name
	}
	return code
}

// Codes returns every known code, sorted.
func (n *Names) Codes() []string {
	if n == nil {
		return nil
	}
	codes := make([]string, 0, len(n.byCode))
	for c := range n.byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
