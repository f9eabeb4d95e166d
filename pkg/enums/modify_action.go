package enums

import "fmt"

// ModifyAction is the server-assigned result tag on an item modification.
// The server decides the outcome; the reducer branches on this tag and must
// not re-derive it.
type ModifyAction string

const (
	ModifyActionUpdated   ModifyAction = "updated"
	ModifyActionUnchanged ModifyAction = "unchanged"
	ModifyActionCreated   ModifyAction = "created"
)

var validModifyActions = []ModifyAction{
	ModifyActionUpdated,
	ModifyActionUnchanged,
	ModifyActionCreated,
}

// String implements fmt.Stringer.
func (m ModifyAction) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ModifyAction.
func (m ModifyAction) IsValid() bool {
	for _, candidate := range validModifyActions {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModifyAction converts raw input into a ModifyAction.
func ParseModifyAction(value string) (ModifyAction, error) {
	for _, candidate := range validModifyActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid modify action %q", value)
}
