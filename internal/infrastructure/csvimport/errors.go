package csvimport

import "fmt"

// Row error codes
const (
	CodeRequired  = "REQUIRED_FIELD"
	CodeInvalid   = "INVALID_VALUE"
	CodeDuplicate = "DUPLICATE_IN_FILE"
	CodeRejected  = "REJECTED"
)

// RowError describes why one row was not imported
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Report counts the outcome of an import
type Report struct {
	Rows    int        `json:"rows"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}

// Failed returns the number of rows that were rejected
func (r *Report) Failed() int {
	seen := make(map[int]bool, len(r.Errors))
	for _, e := range r.Errors {
		seen[e.Row] = true
	}
	return len(seen)
}

// Add records a row error
func (r *Report) Add(row int, column, code, message, value string) {
	r.Errors = append(r.Errors, RowError{Row: row, Column: column, Code: code, Message: message, Value: value})
}
