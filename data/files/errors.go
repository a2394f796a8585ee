package files

import (
	"fmt"
	"strings"
)

// RowError describes one rejected row, Line is 1 based and counts the header
type RowError struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (re RowError) Error() string {
	if re.Column == "" {
		return fmt.Sprintf("line %d: %s", re.Line, re.Message)
	}
	return fmt.Sprintf("line %d, column %s: %s", re.Line, re.Column, re.Message)
}

// ValidationError is returned when a file is structurally fine to read but its content is rejected
type ValidationError struct {
	Source   string     `json:"source"`
	Problems []RowError `json:"problems"`
}

func (ve *ValidationError) Error() string {
	msgs := make([]string, len(ve.Problems))
	for i, p := range ve.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%s rejected: %s", ve.Source, strings.Join(msgs, "; "))
}

func (ve *ValidationError) add(line int, column, format string, args ...any) {
	ve.Problems = append(ve.Problems, RowError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (ve *ValidationError) orNil() error {
	if len(ve.Problems) == 0 {
		return nil
	}
	return ve
}
