package directives

import (
	"fmt"

	"github.com/hanpama/graphstitch/internal/schema"
)

type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}

// Messages lists the violation messages in order.
func (e ValidationError) Messages() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Message
	}
	return out
}

// Core primitive used by all template helpers. A nil position yields an
// unlocated violation.
func violationWithPosition(message string, pos *schema.Position) *Violation {
	v := &Violation{Message: message}
	if pos != nil {
		v.File = pos.File
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}
