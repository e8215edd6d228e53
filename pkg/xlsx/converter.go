// Package xlsx выгружает наборы записей в Excel и читает их обратно.
//
// Первая строка листа - заголовки вида "name (TYPE)", первичный ключ
// отмечается суффиксом " *". Каждая следующая строка - одна запись.
package xlsx

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
)

const defaultSheet = "Sheet1"

// Column - колонка листа
type Column struct {
	Name string
	Type schema.DataType
	Key  bool
}

// Sheet - прочитанный лист
type Sheet struct {
	Name    string
	Columns []Column
	Records []record.Record
}

// PrimaryKey возвращает колонку, отмеченную как ключ
func (s Sheet) PrimaryKey() (string, bool) {
	for _, c := range s.Columns {
		if c.Key {
			return c.Name, true
		}
	}
	return "", false
}

type writeOptions struct {
	primaryKey string
	columns    []schema.ColumnMeta
}

// Option настраивает WriteRecords
type Option func(*writeOptions)

// WithPrimaryKey отмечает колонку ключа в заголовке
func WithPrimaryKey(name string) Option {
	return func(o *writeOptions) { o.primaryKey = name }
}

// WithColumns задает колонки и их типы по схеме таблицы.
// Без этой опции колонки берутся из первой записи, а типы - из значений.
func WithColumns(cols []schema.ColumnMeta) Option {
	return func(o *writeOptions) { o.columns = cols }
}

// WriteRecords записывает записи в новый файл filePath.
//
// Example:
//
//	err := xlsx.WriteRecords("tickets.xlsx", "tickets", recs, xlsx.WithPrimaryKey("id"))
func WriteRecords(filePath, sheetName string, records []record.Record, opts ...Option) error {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	columns := headerColumns(records, o)
	if len(columns) == 0 {
		return fmt.Errorf("no columns to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = defaultSheet
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("failed to delete default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, c := range columns {
		cell := columnName(col+1) + "1"
		header := fmt.Sprintf("%s (%s)", c.Name, c.Type)
		if c.Key {
			header += " *"
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	styles, err := newNumberStyles(f)
	if err != nil {
		return err
	}

	for rowIdx, rec := range records {
		for col, c := range columns {
			v, ok := rec.Lookup(c.Name)
			if !ok || v.IsNull() {
				continue
			}
			cell := columnName(col+1) + strconv.Itoa(rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, cellValue(v)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
			styles.apply(f, sheetName, cell, v.Kind())
		}
	}

	for col := range columns {
		name := columnName(col + 1)
		f.SetColWidth(sheetName, name, name, 15)
	}

	return f.SaveAs(filePath)
}

// ReadRecords читает лист, записанный WriteRecords (или вручную в том же формате).
// Значения возвращаются текстом, пустые ячейки - NULL; приведение к типам
// колонок выполняет нормализатор модели.
func ReadRecords(filePath, sheetName string) (Sheet, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return Sheet{}, fmt.Errorf("sheet %s has no header row", sheetName)
	}

	sheet := Sheet{Name: sheetName}
	for _, header := range rows[0] {
		name, fieldType, isKey := parseHeader(header)
		sheet.Columns = append(sheet.Columns, Column{Name: name, Type: fieldType, Key: isKey})
	}

	for _, dataRow := range rows[1:] {
		var rec record.Record
		for col, c := range sheet.Columns {
			if col >= len(dataRow) || dataRow[col] == "" {
				rec.Set(c.Name, record.Null())
				continue
			}
			rec.Set(c.Name, record.Text(convertFromExcel(dataRow[col], c.Type)))
		}
		sheet.Records = append(sheet.Records, rec)
	}
	return sheet, nil
}

// headerColumns определяет колонки листа по схеме или по первой записи
func headerColumns(records []record.Record, o writeOptions) []Column {
	var columns []Column
	if len(o.columns) > 0 {
		for _, col := range o.columns {
			t := col.Type
			if t == "" {
				t = schema.FromSQLType(col.SQLType)
			}
			columns = append(columns, Column{Name: col.Name, Type: t})
		}
	} else if len(records) > 0 {
		for _, name := range records[0].Keys() {
			columns = append(columns, Column{Name: name, Type: inferType(records, name)})
		}
	}

	for i := range columns {
		columns[i].Key = o.primaryKey != "" && strings.EqualFold(columns[i].Name, o.primaryKey)
	}
	return columns
}

// inferType - тип по первому непустому значению колонки
func inferType(records []record.Record, name string) schema.DataType {
	for _, rec := range records {
		v := rec.Get(name)
		switch v.Kind() {
		case record.KindNull:
			continue
		case record.KindInt:
			return schema.TypeInteger
		case record.KindFloat:
			return schema.TypeReal
		case record.KindBool:
			return schema.TypeBoolean
		case record.KindTime:
			return schema.TypeDatetime
		case record.KindBytes:
			return schema.TypeBlob
		default:
			return schema.TypeText
		}
	}
	return schema.TypeText
}

// parseHeader - parse header string "field_name (TYPE)" or "field_name (TYPE) *"
func parseHeader(header string) (name string, fieldType schema.DataType, isKey bool) {
	header = strings.TrimSpace(header)
	name = header
	fieldType = schema.TypeText

	if strings.HasSuffix(header, " *") {
		isKey = true
		header = strings.TrimSuffix(header, " *")
		name = header
	}

	if idx := strings.LastIndex(header, "("); idx > 0 {
		if endIdx := strings.LastIndex(header, ")"); endIdx > idx {
			name = strings.TrimSpace(header[:idx])
			fieldType = schema.DataType(strings.ToUpper(strings.TrimSpace(header[idx+1 : endIdx])))
		}
	}

	return name, fieldType, isKey
}

// cellValue - значение ячейки для excelize
func cellValue(v record.Value) any {
	switch v.Kind() {
	case record.KindInt:
		i, _ := v.AsInt()
		return i
	case record.KindFloat:
		f, _ := v.AsFloat()
		return f
	case record.KindBool:
		if b, _ := v.AsBool(); b {
			return "TRUE"
		}
		return "FALSE"
	case record.KindBytes:
		return "0x" + hex.EncodeToString([]byte(v.String()))
	default:
		// Время пишется текстом, чтобы чтение не зависело от формата ячейки
		return v.String()
	}
}

// convertFromExcel - значение ячейки в текст, понятный нормализатору
func convertFromExcel(value string, fieldType schema.DataType) string {
	switch fieldType {
	case schema.TypeBoolean:
		switch strings.ToUpper(value) {
		case "TRUE", "1":
			return "1"
		case "FALSE", "0":
			return "0"
		}
	}
	return value
}

// numberStyles - стили встроенных числовых форматов "0" и "0.00"
type numberStyles struct {
	integer, decimal int
}

func newNumberStyles(f *excelize.File) (numberStyles, error) {
	var s numberStyles
	var err error
	if s.integer, err = f.NewStyle(&excelize.Style{NumFmt: 1}); err != nil {
		return s, fmt.Errorf("failed to create number style: %w", err)
	}
	if s.decimal, err = f.NewStyle(&excelize.Style{NumFmt: 2}); err != nil {
		return s, fmt.Errorf("failed to create number style: %w", err)
	}
	return s, nil
}

// apply задает числовой формат ячейки по виду значения
func (s numberStyles) apply(f *excelize.File, sheet, cell string, kind record.Kind) {
	switch kind {
	case record.KindInt:
		f.SetCellStyle(sheet, cell, cell, s.integer)
	case record.KindFloat:
		f.SetCellStyle(sheet, cell, cell, s.decimal)
	}
}

// columnName - convert column index to Excel column name (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
