// Package knowledge implementa la demo de carga de CSV y base de conocimiento.
package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// previewRows filas incluidas en la vista previa que recibe el modelo
const previewRows = 3

// tableRows filas mostradas en la tabla de vista previa
const tableRows = 5

// Row es una fila del CSV con las celdas en el orden de las columnas
type Row []string

// Dataset CSV ya parseado
type Dataset struct {
	Headers []string
	Rows    []Row
}

// Record entrada de la base de conocimiento derivada de una fila
type Record struct {
	ID        int               `json:"id"`
	Content   string            `json:"content"`
	SourceRow map[string]string `json:"sourceRow"`
}

// ParseCSV parsea el CSV de forma ingenua: separa por "\n" y ",", sin
// soporte de comillas escapadas. De cada campo se eliminan las comillas.
// Las filas con otra cantidad de campos que la cabecera se descartan.
func ParseCSV(text string) (*Dataset, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, &ValidationError{Message: MsgTooShort}
	}

	headers := splitFields(lines[0])

	ds := &Dataset{Headers: headers}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row := splitFields(line)
		if len(row) != len(headers) {
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	if len(ds.Rows) == 0 {
		return nil, &ValidationError{Message: MsgNoRows}
	}
	return ds, nil
}

var quoteStripper = strings.NewReplacer(`"`, "", "'", "")

func splitFields(line string) Row {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = quoteStripper.Replace(strings.TrimSpace(f))
	}
	return fields
}

// orderedRow columnas únicas en orden de primera aparición; con cabeceras
// repetidas gana el último valor
func (ds *Dataset) orderedRow(r Row) ([]string, map[string]string) {
	keys := make([]string, 0, len(ds.Headers))
	values := make(map[string]string, len(ds.Headers))
	for i, h := range ds.Headers {
		if _, seen := values[h]; !seen {
			keys = append(keys, h)
		}
		values[h] = r[i]
	}
	return keys, values
}

// BuildKnowledgeBase convierte cada fila en "Record <n>: <col> is <v>, ..."
func BuildKnowledgeBase(ds *Dataset) []Record {
	records := make([]Record, 0, len(ds.Rows))
	for i, r := range ds.Rows {
		keys, values := ds.orderedRow(r)
		parts := make([]string, len(keys))
		for j, k := range keys {
			parts[j] = fmt.Sprintf("%s is %s", k, values[k])
		}
		records = append(records, Record{
			ID:        i,
			Content:   fmt.Sprintf("Record %d: %s", i+1, strings.Join(parts, ", ")),
			SourceRow: values,
		})
	}
	return records
}

// DataPreview describe cabeceras y hasta tres filas de muestra, una por
// línea como JSON compacto con las claves en el orden de las columnas
func DataPreview(ds *Dataset) string {
	var b strings.Builder
	b.WriteString("CSV Headers: ")
	if len(ds.Rows) == 0 {
		return b.String()
	}

	keys, _ := ds.orderedRow(ds.Rows[0])
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString("\n\nSample Data:\n")
	for _, r := range ds.Rows[:min(len(ds.Rows), previewRows)] {
		b.WriteString(rowJSON(ds, r))
		b.WriteByte('\n')
	}
	return b.String()
}

func rowJSON(ds *Dataset, r Row) string {
	keys, values := ds.orderedRow(r)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(k))
		b.WriteByte(':')
		b.WriteString(quote(values[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// Table vista tabular de las primeras filas
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
	Note    string   `json:"note,omitempty"`
}

// TablePreview primeras cinco filas; Note indica el total solo si hay más
func TablePreview(ds *Dataset) Table {
	n := min(len(ds.Rows), tableRows)
	rows := make([]Row, n)
	copy(rows, ds.Rows[:n])
	t := Table{Headers: ds.Headers, Rows: rows}
	if len(ds.Rows) > tableRows {
		t.Note = fmt.Sprintf("Showing first %d of %d rows.", tableRows, len(ds.Rows))
	}
	return t
}

func quote(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(data)
}
