package enums

// OverrideKind describes how a price override derives the effective price.
type OverrideKind string

const (
	OverrideKindFixed     OverrideKind = "fixed"
	OverrideKindIncrease  OverrideKind = "increase"
	OverrideKindDecrease  OverrideKind = "decrease"
	OverrideKindTemporary OverrideKind = "temporary"
)

var validOverrideKinds = []OverrideKind{
	OverrideKindFixed,
	OverrideKindIncrease,
	OverrideKindDecrease,
	OverrideKindTemporary,
}

func (o OverrideKind) IsValid() bool { return oneOf(o, validOverrideKinds) }

func ParseOverrideKind(raw string) (OverrideKind, error) {
	return parseOneOf("override kind", raw, validOverrideKinds)
}
