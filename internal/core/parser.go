package core

// parser.go turns an uploaded text blob into RawRecords.
//
// Lines are split first, so a quoted field cannot span lines. Within a line,
// fields are split by a two-state scanner: commas are separators in the
// unquoted state and literal in the quoted state. A doubled quote ("") inside a
// quoted field is an escaped quote character.
//
// Rows whose field count differs from the header are skipped, not rejected.
// Their row numbers are returned in ParsedBatch.Skipped so callers that want a
// strict row count can compare it themselves.

import (
	"strings"
)

// ParsedBatch is the parser's output for one uploaded blob.
type ParsedBatch struct {
	Header  []string
	Records []RawRecord
	Skipped []int // row numbers dropped for a field count mismatch
}

// ParseBatch parses comma-separated text with a header line.
// Returns ErrMalformedInput if there is no data row after the header and a
// *MissingColumnsError if a required column is absent.
func ParseBatch(text string) (*ParsedBatch, error) {
	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, ErrMalformedInput
	}

	header := splitFields(lines[0])
	for i, h := range header {
		header[i] = unquote(h)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	batch := &ParsedBatch{
		Header:  header,
		Records: make([]RawRecord, 0, len(lines)-1),
	}

	for i, line := range lines[1:] {
		row := i + 2 // header is row 1

		tokens := splitFields(line)
		if len(tokens) != len(header) {
			batch.Skipped = append(batch.Skipped, row)
			continue
		}

		fields := make(map[string]string, len(header))
		for j, name := range header {
			fields[name] = unquote(tokens[j])
		}
		batch.Records = append(batch.Records, RawRecord{Row: row, Fields: fields})
	}

	return batch, nil
}

// nonBlankLines splits text into lines and drops whitespace-only lines,
// including the empty artifact after a trailing newline.
func nonBlankLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// checkHeader reports every required column missing from the header.
func checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

type scanState int

const (
	stateUnquoted scanState = iota
	stateQuoted
)

// splitFields splits one line on commas that are not inside double quotes.
// Tokens are returned raw, quotes included; see unquote.
func splitFields(line string) []string {
	var (
		fields []string
		cur    strings.Builder
		state  = stateUnquoted
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case stateUnquoted:
			switch c {
			case ',':
				fields = append(fields, cur.String())
				cur.Reset()
			case '"':
				state = stateQuoted
				cur.WriteByte(c)
			default:
				cur.WriteByte(c)
			}
		case stateQuoted:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					cur.WriteString(`""`)
					i++
					continue
				}
				state = stateUnquoted
			}
			cur.WriteByte(c)
		}
	}

	return append(fields, cur.String())
}

// unquote strips one matching pair of surrounding quotes (double or single).
// Inside a double-quoted value, "" is collapsed to ".
func unquote(token string) string {
	s := strings.TrimSpace(token)
	if len(s) < 2 {
		return s
	}

	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return s
	}

	s = s[1 : len(s)-1]
	if q == '"' {
		s = strings.ReplaceAll(s, `""`, `"`)
	}
	return s
}
