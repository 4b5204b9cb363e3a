package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultBatchSize is the number of rows per batch when none is configured.
const DefaultBatchSize = 20000

const (
	columnSKU         = "sku"
	columnName        = "name"
	columnDescription = "description"
)

var requiredColumns = []string{columnSKU, columnName, columnDescription}

// ChunkedReader streams a CSV file one batch at a time. Only the current batch is held in memory.
type ChunkedReader struct {
	path      string
	file      *os.File
	csv       *csv.Reader
	batchSize int
	columns   map[string]int
	done      bool
}

// OpenChunkedReader opens path and consumes its header row. The header must contain
// sku, name and description; extra columns are ignored.
func OpenChunkedReader(path string, batchSize int) (*ChunkedReader, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	r := &ChunkedReader{
		path:      path,
		file:      f,
		csv:       newCSVReader(f),
		batchSize: batchSize,
	}
	if err := r.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *ChunkedReader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseError{Path: r.path, Err: ErrEmptyFile}
		}
		return r.parseError(err)
	}

	r.columns = make(map[string]int, len(header))
	for i, col := range header {
		name := strings.TrimSpace(col)
		if _, seen := r.columns[name]; !seen {
			r.columns[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := r.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &ParseError{Path: r.path, Line: 1, Err: fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))}
	}
	return nil
}

// Next returns the next batch in file order. It returns io.EOF once the file is exhausted;
// a final short batch is returned with a nil error before that.
func (r *ChunkedReader) Next() ([]RawRecord, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]RawRecord, 0, r.batchSize)
	for len(batch) < r.batchSize {
		row, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				break
			}
			return nil, r.parseError(err)
		}
		batch = append(batch, RawRecord{
			SKU:         r.cell(row, columnSKU),
			Name:        r.cell(row, columnName),
			Description: r.cell(row, columnDescription),
		})
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Close releases the underlying file.
func (r *ChunkedReader) Close() error {
	return r.file.Close()
}

func (r *ChunkedReader) cell(row []string, column string) string {
	idx := r.columns[column]
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (r *ChunkedReader) parseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Path: r.path, Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Path: r.path, Err: err}
}

// CountRows makes a separate pass over the file and returns the number of data records,
// excluding the header. Quoted fields spanning lines count once.
func CountRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	cr := newCSVReader(f)
	var count int64
	for {
		_, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return 0, &ParseError{Path: path, Line: csvErr.Line, Err: csvErr.Err}
			}
			return 0, &ParseError{Path: path, Err: err}
		}
		count++
	}

	if count == 0 {
		return 0, nil
	}
	return count - 1, nil
}

// newCSVReader strips a leading UTF-8 byte-order mark and tolerates rows of any width.
func newCSVReader(rd io.Reader) *csv.Reader {
	decoded := transform.NewReader(rd, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}
