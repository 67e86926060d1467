package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/xuri/excelize/v2"
)

// SheetName is the only worksheet in an exported workbook.
const SheetName = "Sheet1"

// ErrCellTooLong is returned when a header or value exceeds the Excel cell
// limit of excelize.TotalCellChars characters. excelize would otherwise
// truncate it without reporting anything.
var ErrCellTooLong = errors.New("cell too long")

// EncodeXLSX writes a single-sheet workbook: the header in row 1, then one
// row per record. Numbers become numeric cells and nulls stay blank.
func EncodeXLSX(ds *core.Dataset, _ Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, 0, len(ds.Columns()))
	for _, c := range ds.Columns() {
		header = append(header, c)
	}
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, rec := range ds.Records() {
		row := make([]interface{}, rec.Len())
		for j := range row {
			row[j] = rec.At(j).Any()
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return canonicalZip(buf.Bytes())
}

func setRow(f *excelize.File, rowNum int, values []interface{}) error {
	for col, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n := utf8.RuneCountInString(s); n > excelize.TotalCellChars {
			return fmt.Errorf("%w: row %d column %d has %d characters, limit is %d",
				ErrCellTooLong, rowNum, col+1, n, excelize.TotalCellChars)
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}
	return nil
}

// canonicalZip rewrites an archive with entries sorted by name and no
// timestamps, so the same workbook always produces the same bytes.
func canonicalZip(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read workbook archive: %w", err)
	}

	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, zf := range files {
		if err := copyZipEntry(zw, zf); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func copyZipEntry(zw *zip.Writer, zf *zip.File) error {
	src, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: zf.Name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", zf.Name, err)
	}
	return nil
}
