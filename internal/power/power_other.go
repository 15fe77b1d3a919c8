//go:build !windows

package power

func New() Inhibitor {
	return noop{}
}
