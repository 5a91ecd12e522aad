// internal/benchmark/observer.go
package benchmark

import (
	"sync"

	"github.com/mwiater/tokbench/internal/suite"
)

// Observer receives progress events from a Runner.
type Observer interface {
	TestStarted(index, total int, tc suite.TestCase)
	InvocationStarted(model string, tc suite.TestCase)
	InvocationFinished(model string, rec ResultRecord, content string)
	InvocationFailed(model string, tc suite.TestCase, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) TestStarted(int, int, suite.TestCase)            {}
func (NopObserver) InvocationStarted(string, suite.TestCase)        {}
func (NopObserver) InvocationFinished(string, ResultRecord, string) {}
func (NopObserver) InvocationFailed(string, suite.TestCase, error)  {}

// Observers fans events out to each non-nil observer in order.
func Observers(list ...Observer) Observer {
	var out multiObserver
	for _, o := range list {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) TestStarted(index, total int, tc suite.TestCase) {
	for _, o := range m {
		o.TestStarted(index, total, tc)
	}
}

func (m multiObserver) InvocationStarted(model string, tc suite.TestCase) {
	for _, o := range m {
		o.InvocationStarted(model, tc)
	}
}

func (m multiObserver) InvocationFinished(model string, rec ResultRecord, content string) {
	for _, o := range m {
		o.InvocationFinished(model, rec, content)
	}
}

func (m multiObserver) InvocationFailed(model string, tc suite.TestCase, err error) {
	for _, o := range m {
		o.InvocationFailed(model, tc, err)
	}
}

// lockedObserver serializes events coming from concurrent invocations.
type lockedObserver struct {
	mu    sync.Mutex
	inner Observer
}

func (l *lockedObserver) TestStarted(index, total int, tc suite.TestCase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.TestStarted(index, total, tc)
}

func (l *lockedObserver) InvocationStarted(model string, tc suite.TestCase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.InvocationStarted(model, tc)
}

func (l *lockedObserver) InvocationFinished(model string, rec ResultRecord, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.InvocationFinished(model, rec, content)
}

func (l *lockedObserver) InvocationFailed(model string, tc suite.TestCase, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.InvocationFailed(model, tc, err)
}
