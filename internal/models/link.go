package models

// LinkStatus is the state of the network attachment, independent of any
// broker session.
type LinkStatus int

const (
	LinkNotAcquired LinkStatus = iota
	LinkAcquired
)

func (s LinkStatus) String() string {
	if s == LinkAcquired {
		return "acquired"
	}
	return "not-acquired"
}
