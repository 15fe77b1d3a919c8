//go:build windows

package power

import (
	"runtime"
	"sync"

	"golang.org/x/sys/windows"
)

const (
	esContinuous      = 0x80000000
	esSystemRequired  = 0x00000001
	esDisplayRequired = 0x00000002
)

var procSetThreadExecutionState = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetThreadExecutionState")

// executionState holds SetThreadExecutionState on one locked OS thread,
// since the state belongs to the calling thread.
type executionState struct {
	mu      sync.Mutex
	release chan struct{}
	done    chan struct{}
}

func New() Inhibitor {
	return &executionState{}
}

func (s *executionState) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		return nil
	}
	if err := procSetThreadExecutionState.Find(); err != nil {
		return err
	}
	var started = make(chan error, 1)
	s.release = make(chan struct{})
	s.done = make(chan struct{})
	go func(release, done chan struct{}) {
		runtime.LockOSThread()
		defer close(done)
		var r, _, err = procSetThreadExecutionState.Call(esContinuous | esSystemRequired | esDisplayRequired)
		if r == 0 {
			started <- err
			return
		}
		started <- nil
		<-release
		procSetThreadExecutionState.Call(esContinuous)
	}(s.release, s.done)
	var err = <-started
	if err != nil {
		s.release = nil
		return err
	}
	return nil
}

func (s *executionState) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release == nil {
		return
	}
	close(s.release)
	<-s.done
	s.release = nil
}
