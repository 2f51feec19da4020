package ports

// LockPort guards the package database against concurrent transactions.
type LockPort interface {
	Acquire() error
	Release() error
}
