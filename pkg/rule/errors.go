package rule

import "errors"

var (
	// ErrNotFound is returned when a rule does not exist in the store.
	ErrNotFound = errors.New("rule not found")

	// ErrAlreadyExists is returned when creating a rule with a taken id.
	ErrAlreadyExists = errors.New("rule already exists")

	// ErrNameRequired is returned when a rule has no name.
	ErrNameRequired = errors.New("rule name is required")

	// ErrInvalidTrigger is returned for an unknown trigger event type.
	ErrInvalidTrigger = errors.New("invalid trigger event")

	// ErrTemplateRequired is returned when a rule references no template.
	ErrTemplateRequired = errors.New("rule template reference is required")

	// ErrInvalidPolicy is returned for an unknown recipient policy.
	ErrInvalidPolicy = errors.New("invalid recipient policy")

	// ErrEmptyCustomList is returned when policy is custom-list but no
	// recipients are configured.
	ErrEmptyCustomList = errors.New("custom-list policy requires recipients")

	// ErrNegativeDelay is returned when delay minutes is negative.
	ErrNegativeDelay = errors.New("delay minutes must not be negative")

	// ErrNegativeFrequency is returned when the frequency cap is negative.
	ErrNegativeFrequency = errors.New("max frequency hours must not be negative")

	// ErrConditionFieldRequired is returned for a condition without a field.
	ErrConditionFieldRequired = errors.New("condition field is required")

	// ErrInvalidOperator is returned for an unknown condition operator.
	ErrInvalidOperator = errors.New("invalid condition operator")

	// ErrConditionValuesRequired is returned for a condition without values.
	ErrConditionValuesRequired = errors.New("condition values are required")
)
