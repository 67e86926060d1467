package core

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, input string, opts ParseOptions) (*Dataset, ParseStats, error) {
	t.Helper()
	return Parse(context.Background(), []byte(input), opts)
}

func rowTexts(ds *Dataset) [][]string {
	var out [][]string
	for _, r := range ds.Records() {
		row := make([]string, r.Len())
		for i := range row {
			row[i] = r.At(i).String()
		}
		out = append(out, row)
	}
	return out
}

func TestParse_Basic(t *testing.T) {
	ds, stats, err := parseString(t, "name,age\nAlice,30\nBob,25\n", DefaultParseOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, ds.Columns())
	require.Equal(t, 2, ds.Len())

	alice := ds.Record(0)
	name, ok := alice.Get("name")
	require.True(t, ok)
	assert.Equal(t, StringValue("Alice"), name)
	age, _ := alice.Get("age")
	assert.Equal(t, NumberValue(30), age)

	assert.Equal(t, ',', stats.Delimiter)
	assert.Equal(t, 2, stats.Rows)
	assert.Zero(t, stats.PaddedRows)
	assert.Zero(t, stats.TruncatedRows)
}

func TestParse_RecordsKeepHeaderOrder(t *testing.T) {
	ds, _, err := parseString(t, "z,a,m\n1,2,3\n", DefaultParseOptions())
	require.NoError(t, err)

	b, err := ds.Record(0).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2,"m":3}`, string(b))
}

func TestParse_Empty(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		columns []string
	}{
		{name: "header only", input: "name,age\n", columns: []string{"name", "age"}},
		{name: "header and blank lines", input: "name,age\n\n   \n", columns: []string{"name", "age"}},
		{name: "zero bytes", input: "", columns: nil},
		{name: "whitespace only", input: "\n  \n", columns: nil},
		{name: "BOM only", input: "\xEF\xBB\xBF", columns: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, _, err := parseString(t, tt.input, DefaultParseOptions())
			require.ErrorIs(t, err, ErrEmptyResult)
			assert.NotErrorIs(t, err, ErrParseFailure)
			require.NotNil(t, ds)
			assert.True(t, ds.IsEmpty())
			assert.Equal(t, tt.columns, ds.Columns())
		})
	}
}

func TestParse_BlankLinesSkipped(t *testing.T) {
	ds, _, err := parseString(t, "\nname,age\n\nAlice,30\n   \nBob,25\n\n", DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Alice", "30"}, {"Bob", "25"}}, rowTexts(ds))
}

func TestParse_DelimiterOnlyRowIsData(t *testing.T) {
	ds, _, err := parseString(t, "a,b\n,\n", DefaultParseOptions())
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, []Value{StringValue(""), StringValue("")}, ds.Record(0).Values())
}

func TestParse_ShortRowsPadded(t *testing.T) {
	ds, stats, err := parseString(t, "a,b,c\n1\n1,2,3\n", DefaultParseOptions())
	require.NoError(t, err)

	assert.Equal(t, []Value{NumberValue(1), NullValue(), NullValue()}, ds.Record(0).Values())
	assert.Equal(t, 1, stats.PaddedRows)
}

func TestParse_ExtraFields(t *testing.T) {
	input := "a,b\n1,2,3\n4,5\n"

	t.Run("truncate", func(t *testing.T) {
		opts := DefaultParseOptions()
		opts.ExtraFields = ExtraFieldsTruncate

		ds, stats, err := parseString(t, input, opts)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"1", "2"}, {"4", "5"}}, rowTexts(ds))
		assert.Equal(t, 1, stats.TruncatedRows)
	})

	t.Run("reject", func(t *testing.T) {
		opts := DefaultParseOptions()
		opts.ExtraFields = ExtraFieldsReject

		ds, _, err := parseString(t, input, opts)
		require.ErrorIs(t, err, ErrParseFailure)
		assert.Contains(t, err.Error(), "line 2")
		assert.Nil(t, ds)
	})
}

func TestParse_Delimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim rune
		want  rune
	}{
		{name: "semicolon detected", input: "name;age\nAlice;30\n", want: ';'},
		{name: "tab detected", input: "name\tage\nAlice\t30\n", want: '\t'},
		{name: "pipe detected", input: "name|age\nAlice|30\n", want: '|'},
		{name: "explicit pipe", input: "name|age\nAlice|30\n", delim: '|', want: '|'},
		{name: "quoted delimiters ignored", input: "\"a;b\",c\n1,2\n", want: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultParseOptions()
			opts.Delimiter = tt.delim

			ds, stats, err := parseString(t, tt.input, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.Delimiter)
			assert.Len(t, ds.Columns(), 2)
			assert.Equal(t, 1, ds.Len())
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter([]byte("single")))
	assert.Equal(t, ',', DetectDelimiter(nil))
	assert.Equal(t, ';', DetectDelimiter([]byte("\n\na;b;c\n1,2,3,4,5\n")))
	assert.Equal(t, ',', DetectDelimiter([]byte("a,b;c,d;e\n")), "ties go to the earlier candidate")
}

func TestParse_Quoting(t *testing.T) {
	input := "name,note\n\"Smith, J\",\"said \"\"hi\"\"\"\n\"multi\nline\",x\n"
	ds, _, err := parseString(t, input, DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Smith, J", `said "hi"`}, {"multi\nline", "x"}}, rowTexts(ds))
}

func TestParse_BareQuote(t *testing.T) {
	input := "a,b\nx\"y,1\n"

	_, _, err := parseString(t, input, DefaultParseOptions())
	require.ErrorIs(t, err, ErrParseFailure)

	opts := DefaultParseOptions()
	opts.LazyQuotes = true
	ds, _, err := parseString(t, input, opts)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{`x"y`, "1"}}, rowTexts(ds))
}

func TestParse_HeaderNormalized(t *testing.T) {
	ds, _, err := parseString(t, "\xEF\xBB\xBF id , name,name,\n1,a,b,c\n", DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "name_1", "column_4"}, ds.Columns())
}

func TestParse_CRLF(t *testing.T) {
	ds, _, err := parseString(t, "name,age\r\nAlice,30\r\n", DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Alice", "30"}}, rowTexts(ds))
}

func TestParse_CoercionDisabled(t *testing.T) {
	opts := DefaultParseOptions()
	opts.CoerceNumbers = false

	ds, _, err := parseString(t, "n\n42\n", opts)
	require.NoError(t, err)
	assert.Equal(t, StringValue("42"), ds.Record(0).At(0))
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds, _, err := Parse(ctx, []byte("a\n1\n"), DefaultParseOptions())
	require.ErrorIs(t, err, ErrParseFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ds)
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		ok          bool
	}{
		{name: "csv name", file: "data.csv", contentType: "", ok: true},
		{name: "csv name upper case", file: "DATA.CSV", contentType: "application/octet-stream", ok: true},
		{name: "csv type", file: "data.txt", contentType: "text/csv", ok: true},
		{name: "csv type with params", file: "export", contentType: "text/csv; charset=utf-8", ok: true},
		{name: "excel file", file: "data.xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ok: false},
		{name: "plain text", file: "data.txt", contentType: "text/plain", ok: false},
		{name: "csv in middle of name", file: "data.csv.bak", contentType: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(NewBytesSource(tt.file, tt.contentType, nil))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFormat)
			}
		})
	}

	assert.ErrorIs(t, ValidateSource(nil), ErrInvalidFormat)
}

type failingSource struct{}

func (failingSource) Name() string                 { return "broken.csv" }
func (failingSource) ContentType() string          { return CSVMediaType }
func (failingSource) Open() (io.ReadCloser, error) { return nil, errors.New("disk on fire") }

func TestParseSource(t *testing.T) {
	t.Run("accepts text/csv regardless of name", func(t *testing.T) {
		src := NewBytesSource("data.txt", "text/csv", []byte("name,age\nAlice,30\n"))
		ds, _, err := ParseSource(context.Background(), src, DefaultParseOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
	})

	t.Run("rejects before reading", func(t *testing.T) {
		src := NewBytesSource("data.xlsx", "application/zip", []byte("name\nx\n"))
		ds, _, err := ParseSource(context.Background(), src, DefaultParseOptions())
		require.ErrorIs(t, err, ErrInvalidFormat)
		assert.Nil(t, ds)
	})

	t.Run("open failure", func(t *testing.T) {
		_, _, err := ParseSource(context.Background(), failingSource{}, DefaultParseOptions())
		assert.ErrorIs(t, err, ErrParseFailure)
	})

	t.Run("too large", func(t *testing.T) {
		opts := DefaultParseOptions()
		opts.MaxFileSize = 8
		src := NewBytesSource("big.csv", "", []byte("name,age\nAlice,30\n"))
		_, _, err := ParseSource(context.Background(), src, opts)
		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.ErrorIs(t, err, ErrParseFailure)
	})

	t.Run("file on disk", func(t *testing.T) {
		path := t.TempDir() + "/people.csv"
		require.NoError(t, os.WriteFile(path, []byte("name\nAda\n"), 0o600))
		ds, _, err := ParseSource(context.Background(), NewFileSource(path), DefaultParseOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
	})
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "auto", want: 0},
		{in: "AUTO", want: 0},
		{in: "tab", want: '\t'},
		{in: `\t`, want: '\t'},
		{in: ";", want: ';'},
		{in: "|", want: '|'},
		{in: `"`, wantErr: true},
		{in: "\n", wantErr: true},
		{in: ",,", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLines int
		wantBlank int
	}{
		{"empty", "", 0, 0},
		{"no trailing newline", "a,b\n1,2", 2, 0},
		{"blank and whitespace lines", "a,b\n\n1,2\n  \t\r\n3,4\n", 5, 2},
		{"crlf", "a,b\r\n1,2\r\n", 2, 0},
		{"newline inside quotes", "a,b\n\"x\n\ny\",2\n", 2, 0},
		{"delimiter-only row is data", "a,b\n,\n", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, blank := countLines([]byte(tt.input))
			assert.Equal(t, tt.wantLines, lines)
			assert.Equal(t, tt.wantBlank, blank)
		})
	}
}

func TestParseCountsBlankLines(t *testing.T) {
	_, stats, err := parseString(t, "\nname\n\nAlice\n   \nBob\n", DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 6, stats.Lines)
	assert.Equal(t, 3, stats.BlankLines)
}

func TestParseKeepsQuotedEmptyCell(t *testing.T) {
	ds, stats, err := parseString(t, "name\nAlice\n\"\"\nBob\n\"  \"\n", DefaultParseOptions())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"Alice"}, {""}, {"Bob"}, {"  "}}, rowTexts(ds))
	assert.Equal(t, 0, stats.BlankLines)

	empty := ds.Record(1).At(0)
	assert.False(t, empty.IsNull())
}
