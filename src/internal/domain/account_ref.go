package domain

// AccountRef is a distinct (name, sub, type) triple observed across stored
// entries. A discovery aid for reporting, not a hot-path object.
type AccountRef struct {
	Name string
	Sub  string
	Type AccountType
}
