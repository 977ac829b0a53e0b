package domain

// IntentType is a user action produced by the view.
type IntentType string

const (
	IntentAdd       IntentType = "add"
	IntentIncrement IntentType = "increment"
	IntentDecrement IntentType = "decrement"
	IntentRemove    IntentType = "remove"
	IntentClear     IntentType = "clear"
)

type Intent struct {
	Type IntentType `json:"type"`
	ID   string     `json:"id,omitempty"`
}
