// Package csvimport reads spreadsheet exports row by row with headers mapped
// to canonical column names.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Parser errors
var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
)

const sniffSize = 4096

// Parser reads a CSV file whose first row holds the column names
type Parser struct {
	reader  *csv.Reader
	aliases map[string]string
	headers []string
	line    int
}

// Option configures a Parser
type Option func(*Parser)

// WithDelimiter fixes the field delimiter instead of sniffing it
func WithDelimiter(d rune) Option {
	return func(p *Parser) { p.reader.Comma = d }
}

// WithAliases maps alternative header spellings to canonical names.
// Keys are compared case-insensitively.
func WithAliases(aliases map[string]string) Option {
	return func(p *Parser) {
		for k, v := range aliases {
			p.aliases[normalizeHeader(k)] = v
		}
	}
}

// NewParser strips a UTF-8 BOM, checks the encoding and picks ',' or ';' as
// the delimiter, whichever the header line uses more.
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	truncated := len(head) == sniffSize
	if bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
		head = head[3:]
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	if truncated {
		head = trimPartialRune(head)
	}
	if !utf8.Valid(head) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(head)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	p := &Parser{reader: reader, aliases: make(map[string]string)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ParseHeader reads the header row
func (p *Parser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1
	p.headers = make([]string, len(record))
	for i, h := range record {
		name := normalizeHeader(h)
		if canonical, ok := p.aliases[name]; ok {
			name = canonical
		}
		p.headers[i] = name
	}
	if len(p.headers) == 0 || (len(p.headers) == 1 && p.headers[0] == "") {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the canonical column names in file order
func (p *Parser) Headers() []string {
	return p.headers
}

// Missing returns the required columns absent from the header
func (p *Parser) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !p.has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p *Parser) has(name string) bool {
	for _, h := range p.headers {
		if h == name {
			return true
		}
	}
	return false
}

// Row is one data line
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a column, or "" when the column is absent
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// Has reports whether the column exists in the file
func (r *Row) Has(column string) bool {
	_, ok := r.Data[column]
	return ok
}

// IsEmpty reports whether every cell is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next non-empty row, or io.EOF
func (p *Parser) Next() (*Row, error) {
	for {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		p.line++
		if err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", p.line, err)
		}
		row := &Row{Line: p.line, Data: make(map[string]string, len(p.headers))}
		for i, h := range p.headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row.Data[h] = strings.TrimSpace(record[i])
			} else {
				row.Data[h] = ""
			}
		}
		if row.IsEmpty() {
			continue
		}
		return row, nil
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func sniffDelimiter(head []byte) rune {
	firstLine, _, _ := bytes.Cut(head, []byte("\n"))
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

// trimPartialRune drops a multi-byte character cut off by the end of the sniff window
func trimPartialRune(b []byte) []byte {
	j := len(b) - 1
	for j > 0 && j > len(b)-utf8.UTFMax && !utf8.RuneStart(b[j]) {
		j--
	}
	if j >= 0 && !utf8.FullRune(b[j:]) {
		return b[:j]
	}
	return b
}
