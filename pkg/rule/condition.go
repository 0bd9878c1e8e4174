package rule

import (
	"slices"

	"github.com/civicflow/notifier/pkg/event"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpIn        Operator = "in"
	OpNotIn     Operator = "not-in"
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not-equals"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpIn, OpNotIn, OpEquals, OpNotEquals:
		return true
	}
	return false
}

// Condition is a single predicate clause over an event payload field.
// Equals/NotEquals compare against Values[0]; In/NotIn test set membership.
type Condition struct {
	Field  string   `json:"field"`
	Op     Operator `json:"op"`
	Values []string `json:"values"`
}

// Holds evaluates the clause against the event. A field absent from the
// payload evaluates false regardless of operator, including the negated
// ones: an absent field is treated as unknown, not as a mismatch.
func (c Condition) Holds(ev event.Event) bool {
	got, ok := ev.Field(c.Field)
	if !ok {
		return false
	}

	switch c.Op {
	case OpEquals:
		return len(c.Values) > 0 && got == c.Values[0]
	case OpNotEquals:
		return len(c.Values) > 0 && got != c.Values[0]
	case OpIn:
		return slices.Contains(c.Values, got)
	case OpNotIn:
		return !slices.Contains(c.Values, got)
	}
	return false
}

// Validate checks authoring invariants for the clause.
func (c Condition) Validate() error {
	if c.Field == "" {
		return ErrConditionFieldRequired
	}
	if !c.Op.Valid() {
		return ErrInvalidOperator
	}
	if len(c.Values) == 0 {
		return ErrConditionValuesRequired
	}
	return nil
}
