package shared

// DeletionPolicy describes how an entity leaves the system.
type DeletionPolicy int

const (
	// Deletable entities are removed with a hard delete.
	Deletable DeletionPolicy = iota + 1
	// SoftDeletable entities are deactivated and keep their history.
	SoftDeletable
)

func (p DeletionPolicy) String() string {
	switch p {
	case Deletable:
		return "deletable"
	case SoftDeletable:
		return "soft-deletable"
	}
	return "unknown"
}
