package assembler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const sheetName = "Sheet1"

// Fixed document properties keep workbook bytes identical across runs;
// excelize would otherwise stamp creation metadata.
var fixedDocProps = excelize.DocProperties{
	Created:  "2000-01-01T00:00:00Z",
	Modified: "2000-01-01T00:00:00Z",
	Creator:  "scriba",
}

// buildSpreadsheet writes one row per record with one column per distinct
// field name. Columns are the union of all field names in first-seen order;
// a record missing a field leaves that cell blank instead of shifting values.
func buildSpreadsheet(rows contractx.RowSet) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: row set is empty", contractx.ErrAssembly)
	}

	columns := rows.Columns()
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: row set has no fields", contractx.ErrAssembly)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetDocProps(&fixedDocProps); err != nil {
		return nil, fmt.Errorf("%w: set doc props: %v", contractx.ErrAssembly, err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("%w: write header: %v", contractx.ErrAssembly, err)
	}

	for i, rec := range rows {
		cells := make([]any, len(columns))
		for j, col := range columns {
			if v, ok := rec.Get(col); ok {
				cells[j] = v
			} else {
				cells[j] = ""
			}
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("%w: row address: %v", contractx.ErrAssembly, err)
		}
		if err := f.SetSheetRow(sheetName, addr, &cells); err != nil {
			return nil, fmt.Errorf("%w: write row %d: %v", contractx.ErrAssembly, i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: write workbook: %v", contractx.ErrAssembly, err)
	}
	return buf.Bytes(), nil
}

func appendSpreadsheetRow(content []byte, record contractx.Record) ([]byte, error) {
	if record.Len() == 0 {
		return nil, fmt.Errorf("%w: row has no fields", contractx.ErrAssembly)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", contractx.ErrAssembly, err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	existing, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", contractx.ErrAssembly, err)
	}

	var columns []string
	if len(existing) > 0 {
		columns = existing[0]
	}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	// unseen field names become new columns appended to the header
	for _, name := range record.Fields() {
		if _, ok := index[name]; !ok {
			index[name] = len(columns)
			columns = append(columns, name)
		}
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("%w: rewrite header: %v", contractx.ErrAssembly, err)
	}

	cells := make([]any, len(columns))
	for i := range cells {
		cells[i] = ""
	}
	for _, name := range record.Fields() {
		v, _ := record.Get(name)
		cells[index[name]] = v
	}

	addr, err := excelize.CoordinatesToCellName(1, len(existing)+1)
	if err != nil {
		return nil, fmt.Errorf("%w: row address: %v", contractx.ErrAssembly, err)
	}
	if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
		return nil, fmt.Errorf("%w: append row: %v", contractx.ErrAssembly, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: write workbook: %v", contractx.ErrAssembly, err)
	}
	return buf.Bytes(), nil
}

func spreadsheetText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: open workbook: %v", contractx.ErrAssembly, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: read sheet %s: %v", contractx.ErrAssembly, sheet, err)
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}
