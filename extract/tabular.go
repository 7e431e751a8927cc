// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/poiesic/filevec/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one data record of a tabular file with its header order preserved.
type Row struct {
	Columns []string
	Values  []string
}

// Content renders the row as "{col: value, col: value}".
func (r Row) Content() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(": ")
		b.WriteString(r.value(i))
	}
	b.WriteByte('}')
	return b.String()
}

// Map returns the row as metadata keyed by column.
func (r Row) Map() core.Metadata {
	md := make(core.Metadata, len(r.Columns))
	for i, col := range r.Columns {
		md[col] = r.value(i)
	}
	return md
}

func (r Row) value(i int) string {
	if i < len(r.Values) {
		return r.Values[i]
	}
	return ""
}

// newRows turns a header record and data records into rows. Blank header
// cells become column_N and fully blank records are dropped.
func newRows(header []string, records [][]string) []Row {
	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, string(utf8BOM))
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = h
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		if blank(record) {
			continue
		}
		values := make([]string, len(columns))
		for i := range columns {
			if i < len(record) {
				values[i] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, Row{Columns: columns, Values: values})
	}
	return rows
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readCSV(ctx context.Context, path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		records = append(records, record)
	}
	return newRows(header, records), nil
}

// readXLSX reads the first sheet; its first row is the header.
func readXLSX(ctx context.Context, path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return newRows(rows[0], rows[1:]), nil
}
