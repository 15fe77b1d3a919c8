package power

// Inhibitor keeps the machine awake while a long job runs.
type Inhibitor interface {
	Acquire() error
	Release()
}

type noop struct{}

func (noop) Acquire() error { return nil }
func (noop) Release()       {}

// Noop returns an Inhibitor that does nothing.
func Noop() Inhibitor {
	return noop{}
}
