package csv

import (
	"bufio"
	"cmp"
	"io"
	"slices"
	"strings"

	"hermannm.dev/wrap"
)

var DefaultDelimitersToCheck = []rune{',', ';', '\t', ' ', '|'}

// DeduceFieldDelimiter counts each candidate delimiter in the first rows of the file, and picks the
// one that splits the rows most consistently. The file's read position is reset afterwards.
func DeduceFieldDelimiter(
	csvFile io.ReadSeeker,
	maxRowsToCheck int,
	delimitersToCheck []rune,
) (delimiter rune, err error) {
	defer func() {
		if _, seekErr := csvFile.Seek(0, io.SeekStart); seekErr != nil {
			err = wrap.Error(seekErr, "failed to reset CSV reader after deducing field delimiter")
		}
	}()

	if len(delimitersToCheck) == 0 {
		delimitersToCheck = DefaultDelimitersToCheck
	}

	candidates := make([]delimiterCounts, len(delimitersToCheck))
	for i, candidate := range delimitersToCheck {
		candidates[i] = delimiterCounts{delimiter: candidate}
	}

	scanner := bufio.NewScanner(csvFile)
	for row := 0; row < maxRowsToCheck && scanner.Scan(); row++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		for i := range candidates {
			candidates[i].add(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, wrap.Error(err, "failed to scan CSV file for field delimiter")
	}

	best := slices.MaxFunc(candidates, compareDelimiterCounts)
	if best.highest == 0 {
		// A single-column file has no delimiter to find, so any will do.
		return delimitersToCheck[0], nil
	}
	return best.delimiter, nil
}

// Lowest and highest number of occurrences of a delimiter in the rows checked so far.
type delimiterCounts struct {
	delimiter rune
	lowest    int
	highest   int
	rows      int
}

func (counts *delimiterCounts) add(line string) {
	count := strings.Count(line, string(counts.delimiter))

	if counts.rows == 0 {
		counts.lowest, counts.highest = count, count
	} else {
		counts.lowest = min(counts.lowest, count)
		counts.highest = max(counts.highest, count)
	}
	counts.rows++
}

// Whether the delimiter splits every row into the same number of fields.
func (counts delimiterCounts) consistent() bool {
	return counts.highest > 0 && counts.lowest == counts.highest
}

// Ranks consistent delimiters first, then by fewest and most occurrences in a row. Ties go to the
// delimiter checked first.
func compareDelimiterCounts(first delimiterCounts, second delimiterCounts) int {
	if first.consistent() != second.consistent() {
		if first.consistent() {
			return 1
		}
		return -1
	}

	if comparison := cmp.Compare(first.lowest, second.lowest); comparison != 0 {
		return comparison
	}
	return cmp.Compare(first.highest, second.highest)
}
