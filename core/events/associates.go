package events

// AssociatesChanged is emitted when the associate registry is modified.
// Count is the registry size after the change.
type AssociatesChanged struct {
	Action string
	DNI    string
	Count  int
}
