package domain

// RecipientKind discriminates the two things a message can be addressed
// to. A name naming both a user and a group resolves to the user.
type RecipientKind int

const (
	RecipientUser RecipientKind = iota
	RecipientGroup
)

// Recipient is a resolved message target.
type Recipient struct {
	Kind RecipientKind
	Name string
}
