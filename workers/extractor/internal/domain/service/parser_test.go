package service

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, content string) ([]string, [][]string, error) {
	t.Helper()

	reader := NewRowReader(strings.NewReader(content))
	header, err := reader.Header()
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for {
		row, n, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			return header, rows, err
		}
		require.Equal(t, len(rows)+1, n)
		rows = append(rows, row)
	}
}

func TestRowReader(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "header and rows",
			content:    "a,b,c\n1,2,3\n4,5,6\n",
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
		},
		{
			name:       "header only",
			content:    "a,b,c\n",
			wantHeader: []string{"a", "b", "c"},
		},
		{
			name:       "no trailing newline",
			content:    "a,b\n1,2",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "crlf line endings",
			content:    "a,b\r\n1,2\r\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "quoted field with comma",
			content:    "name,city\n\"Doe, Jane\",Lahore\n",
			wantHeader: []string{"name", "city"},
			wantRows:   [][]string{{"Doe, Jane", "Lahore"}},
		},
		{
			name:       "mismatched arity kept as-is",
			content:    "a,b,c\n1,2\n3,4,5,6\n",
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"1", "2"}, {"3", "4", "5", "6"}},
		},
		{
			name:       "tabs are not delimiters",
			content:    "a\tb\n1\t2\n",
			wantHeader: []string{"a\tb"},
			wantRows:   [][]string{{"1\t2"}},
		},
		{
			name:       "blank lines are empty rows",
			content:    "a,b\n\n1,2\n\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{}, {"1", "2"}, {}},
		},
		{
			name:       "whitespace line is a row",
			content:    "a,b\n \n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{" "}},
		},
		{
			name:       "bare quote kept literally",
			content:    "item,size\n5\" screen,10\nx,y\n",
			wantHeader: []string{"item", "size"},
			wantRows:   [][]string{{"5\" screen", "10"}, {"x", "y"}},
		},
		{
			name:       "text after closing quote joins the field",
			content:    "a,b\n\"x\"y,z\n1,2\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"xy", "z"}, {"1", "2"}},
		},
		{
			name:       "escaped quotes",
			content:    "a\n\"say \"\"hi\"\"\"\n",
			wantHeader: []string{"a"},
			wantRows:   [][]string{{"say \"hi\""}},
		},
		{
			name:       "quoted field spanning lines",
			content:    "a,b\n\"line 1\r\nline 2\",x\n1,2\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"line 1\nline 2", "x"}, {"1", "2"}},
		},
		{
			name:       "empty fields",
			content:    "a,b,c\n,,\n1,\n",
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"", "", ""}, {"1", ""}},
		},
		{
			name:       "unterminated quote runs to end of input",
			content:    "a,b\n1,2\n\"broken,3\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", "2"}, {"broken,3\n"}},
		},
		{
			name:       "unterminated quote without trailing newline",
			content:    "a\n\"open",
			wantHeader: []string{"a"},
			wantRows:   [][]string{{"open"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows, err := readAll(t, tt.content)

			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, header)
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestRowReader_Empty(t *testing.T) {
	reader := NewRowReader(strings.NewReader(""))

	_, err := reader.Header()
	assert.ErrorIs(t, err, io.EOF)

	_, _, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRowReader_BlankFirstLine(t *testing.T) {
	header, rows, err := readAll(t, "\n1,2\n")

	require.NoError(t, err)
	assert.Empty(t, header)
	assert.Equal(t, [][]string{{"1", "2"}}, rows)
}

func TestRowReader_FieldTooLarge(t *testing.T) {
	atLimit := strings.Repeat("x", FieldSizeLimit)
	content := "a,b\n1,2\n" + atLimit + ",3\n" + atLimit + "x,4\n"

	header, rows, err := readAll(t, content)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldTooLarge)
	assert.Equal(t, []string{"a", "b"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{atLimit, "3"}, rows[1])
	assert.Equal(t, 4, ErrorLine(err))
}

func TestRowReader_ReadFailure(t *testing.T) {
	source := io.MultiReader(strings.NewReader("a,b\n1,2\n"), iotest.ErrReader(errors.New("connection reset")))

	reader := NewRowReader(source)
	_, err := reader.Header()
	require.NoError(t, err)

	row, n, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, row)
	assert.Equal(t, 1, n)

	_, _, err = reader.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, ErrorLine(err))
}

func TestErrorLine_Unknown(t *testing.T) {
	assert.Equal(t, 0, ErrorLine(errors.New("disk full")))
}

func TestMatchesArity(t *testing.T) {
	header := []string{"a", "b"}

	assert.True(t, MatchesArity(header, []string{"1", "2"}))
	assert.False(t, MatchesArity(header, []string{"1"}))
	assert.False(t, MatchesArity(header, []string{"1", "2", "3"}))
}

func TestLineError(t *testing.T) {
	err := &LineError{Line: 7, Err: ErrFieldTooLarge}

	assert.Equal(t, "line 7: field larger than field limit", err.Error())
	assert.ErrorIs(t, err, ErrFieldTooLarge)
	assert.Equal(t, 7, ErrorLine(fmt.Errorf("wrapped: %w", err)))
}
