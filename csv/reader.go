package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"hermannm.dev/wrap"
)

const maxRowsToCheckForDelimiter = 20

// Reader reads baseline records from an uploaded CSV file, deducing its field delimiter.
type Reader struct {
	inner      *csv.Reader
	currentRow int
}

func NewReader(csvFile io.ReadSeeker) (*Reader, error) {
	delimiter, err := DeduceFieldDelimiter(
		csvFile, maxRowsToCheckForDelimiter, DefaultDelimitersToCheck,
	)
	if err != nil {
		return nil, err
	}

	inner := csv.NewReader(csvFile)
	inner.ReuseRecord = true
	inner.Comma = delimiter
	inner.TrimLeadingSpace = true

	return &Reader{inner: inner, currentRow: 0}, nil
}

// Implements db.DataSource. The returned row is only valid until the next call.
func (reader *Reader) ReadRow() (row []string, rowNumber int, done bool, err error) {
	reader.currentRow++

	row, err = reader.inner.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, true, nil
		} else {
			return nil, 0, false, wrap.Errorf(err, "failed to parse CSV row %d", reader.currentRow)
		}
	}

	return row, reader.currentRow, false, nil
}

// ReadHeaderRow reads the column names of the file. It must be called before any other rows are
// read.
func (reader *Reader) ReadHeaderRow() (header []string, err error) {
	row, rowNumber, done, err := reader.ReadRow()
	if rowNumber > 1 {
		return nil, errors.New("tried to read header row after reading previous rows")
	}
	if done {
		return nil, errors.New("CSV file ended before header row")
	}
	if err != nil {
		return nil, err
	}

	header = make([]string, len(row))
	copy(header, row)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}
