package export

import (
	"bytes"
	"fmt"

	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// EncodeParquet writes a single row group, snappy compressed. A column is
// int64 when every non-null value in it is a number, utf8 otherwise.
// All columns are nullable.
func EncodeParquet(ds *core.Dataset, _ Options) ([]byte, error) {
	schema := ArrowSchema(ds)
	records := ds.Records()

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	for _, rec := range records {
		for j := range schema.NumFields() {
			v := rec.At(j)
			switch fb := b.Field(j).(type) {
			case *array.Int64Builder:
				if v.IsNull() {
					fb.AppendNull()
				} else {
					fb.Append(v.Int())
				}
			case *array.StringBuilder:
				if v.IsNull() {
					fb.AppendNull()
				} else {
					fb.Append(v.Text())
				}
			default:
				return nil, fmt.Errorf("column %q: unexpected builder %T", schema.Field(j).Name, fb)
			}
		}
	}

	batch := b.NewRecord()
	defer batch.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	w, err := pqarrow.NewFileWriter(schema, &buf, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	if err := w.Write(batch); err != nil {
		w.Close()
		return nil, fmt.Errorf("write parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ArrowSchema derives the column types EncodeParquet uses.
func ArrowSchema(ds *core.Dataset) *arrow.Schema {
	columns := ds.Columns()
	fields := make([]arrow.Field, len(columns))
	for j, name := range columns {
		var typ arrow.DataType = arrow.BinaryTypes.String
		if numericColumn(ds, j) {
			typ = arrow.PrimitiveTypes.Int64
		}
		fields[j] = arrow.Field{Name: name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// numericColumn reports whether column j holds at least one number and
// nothing but numbers and nulls.
func numericColumn(ds *core.Dataset, j int) bool {
	seen := false
	for i := range ds.Len() {
		switch ds.Record(i).At(j).Kind() {
		case core.KindNumber:
			seen = true
		case core.KindString:
			return false
		}
	}
	return seen
}
