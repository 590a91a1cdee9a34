package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Delimiter separates fields. The scratch file keeps its historical .tsv
// name but the content is comma separated.
const Delimiter = ','

const quote = '"'

// FieldSizeLimit is the largest field, in characters, the reader accepts
const FieldSizeLimit = 131072

var ErrFieldTooLarge = errors.New("field larger than field limit")

// LineError reports a failure while reading the given 1-based input line
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

type parseState int

const (
	startRecord parseState = iota
	startField
	inField
	inQuotedField
	quoteInQuotedField
)

// RowReader streams rows from comma-separated content. The first row read is
// the header; every following row is a data row.
//
// Parsing is lenient. Stray quotes are literal and a blank line is a row with
// no fields. The only content rejected is a field over FieldSizeLimit.
type RowReader struct {
	reader *bufio.Reader
	header []string
	row    int
	line   int
	eof    bool

	state  parseState
	fields []string
	field  strings.Builder
	size   int
}

func NewRowReader(r io.Reader) *RowReader {
	return &RowReader{reader: bufio.NewReader(r)}
}

// Header reads the header row. It returns io.EOF when the content is empty.
func (r *RowReader) Header() ([]string, error) {
	if r.header != nil {
		return r.header, nil
	}

	header, err := r.read()
	if err != nil {
		return nil, err
	}

	r.header = header
	return header, nil
}

// Next returns the next data row and its 1-based row number, or io.EOF
// after the last one.
func (r *RowReader) Next() ([]string, int, error) {
	if r.header == nil {
		if _, err := r.Header(); err != nil {
			return nil, 0, err
		}
	}

	row, err := r.read()
	if err != nil {
		return nil, 0, err
	}

	r.row++
	return row, r.row, nil
}

// read returns the next record, which may span several lines when a quoted
// field contains line breaks.
func (r *RowReader) read() ([]string, error) {
	r.state = startRecord
	r.fields = []string{}
	r.resetField()

	for {
		if r.eof {
			// An open quoted field is closed by the end of the input
			if r.state == inQuotedField || r.field.Len() > 0 {
				r.saveField()
				return r.fields, nil
			}
			return nil, io.EOF
		}

		line, terminated, err := r.readLine()
		if err != nil {
			return nil, &LineError{Line: r.line + 1, Err: err}
		}
		if r.eof && line == "" && !terminated {
			continue
		}

		for _, c := range line {
			if err := r.process(c); err != nil {
				return nil, &LineError{Line: r.line, Err: err}
			}
		}

		if r.endOfLine(terminated) {
			return r.fields, nil
		}
	}
}

// readLine returns the next line without its terminator and whether it had one
func (r *RowReader) readLine() (string, bool, error) {
	line, err := r.reader.ReadString('\n')
	if errors.Is(err, io.EOF) {
		r.eof = true
		err = nil
	}
	if err != nil {
		return "", false, err
	}
	if line == "" {
		return "", false, nil
	}

	r.line++
	terminated := strings.HasSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, terminated, nil
}

func (r *RowReader) process(c rune) error {
	switch r.state {
	case startRecord, startField:
		r.state = startField
		switch c {
		case quote:
			r.state = inQuotedField
		case Delimiter:
			r.saveField()
		default:
			r.state = inField
			return r.addChar(c)
		}

	case inField:
		if c == Delimiter {
			r.saveField()
			r.state = startField
			return nil
		}
		return r.addChar(c)

	case inQuotedField:
		if c == quote {
			r.state = quoteInQuotedField
			return nil
		}
		return r.addChar(c)

	case quoteInQuotedField:
		switch c {
		case quote:
			r.state = inQuotedField
			return r.addChar(c)
		case Delimiter:
			r.saveField()
			r.state = startField
		default:
			// text after a closing quote joins the field
			r.state = inField
			return r.addChar(c)
		}
	}
	return nil
}

// endOfLine applies the line break and reports whether the record is complete
func (r *RowReader) endOfLine(terminated bool) bool {
	switch r.state {
	case startRecord:
		return true
	case inQuotedField:
		if terminated {
			r.field.WriteByte('\n')
			r.size++
		}
		return false
	default:
		r.saveField()
		return true
	}
}

func (r *RowReader) addChar(c rune) error {
	if r.size >= FieldSizeLimit {
		return fmt.Errorf("%w (%d)", ErrFieldTooLarge, FieldSizeLimit)
	}
	r.field.WriteRune(c)
	r.size++
	return nil
}

func (r *RowReader) saveField() {
	r.fields = append(r.fields, r.field.String())
	r.resetField()
}

func (r *RowReader) resetField() {
	r.field.Reset()
	r.size = 0
}

// ErrorLine extracts the input line from a read error, or 0 when unknown
func ErrorLine(err error) int {
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		return lineErr.Line
	}
	return 0
}

// MatchesArity reports whether row has as many fields as header
func MatchesArity(header, row []string) bool {
	return len(header) == len(row)
}
