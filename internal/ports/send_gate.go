package ports

// SendGate checks whether a scheduled send may proceed.
// When it returns false the cycle performs eviction only.
type SendGate interface {
	OK() bool
}
