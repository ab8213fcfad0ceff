package controller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vibast-solutions/lib-go-checkout/app/provider"
)

// RemoteLauncher hands bridge launches to a browser front end. The launch is
// parked until the front end reports back through one of the bridge
// endpoints.
type RemoteLauncher struct {
	mu      sync.Mutex
	pending *pendingLaunch
	now     func() time.Time
}

type pendingLaunch struct {
	input      provider.BridgeInput
	callbacks  provider.Callbacks
	launchedAt time.Time
}

func NewRemoteLauncher() *RemoteLauncher {
	return &RemoteLauncher{now: time.Now}
}

func (l *RemoteLauncher) Launch(_ context.Context, in *provider.BridgeInput, cb provider.Callbacks) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = &pendingLaunch{input: *in, callbacks: cb, launchedAt: l.now()}
	return nil
}

// Pending returns the launch the front end still has to run, if any.
func (l *RemoteLauncher) Pending() (*provider.BridgeInput, time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return nil, time.Time{}, false
	}
	in := l.pending.input
	return &in, l.pending.launchedAt, true
}

func (l *RemoteLauncher) take() (provider.Callbacks, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return provider.Callbacks{}, false
	}
	cb := l.pending.callbacks
	l.pending = nil
	return cb, true
}

func (l *RemoteLauncher) Succeed(payload json.RawMessage) bool {
	cb, ok := l.take()
	if !ok {
		return false
	}
	if cb.OnSuccess != nil {
		cb.OnSuccess(normalizePayload(payload))
	}
	return true
}

func (l *RemoteLauncher) Fail(payload json.RawMessage) bool {
	cb, ok := l.take()
	if !ok {
		return false
	}
	if cb.OnError != nil {
		cb.OnError(normalizePayload(payload))
	}
	return true
}

func (l *RemoteLauncher) Dismiss() bool {
	cb, ok := l.take()
	if !ok {
		return false
	}
	if cb.OnClose != nil {
		cb.OnClose()
	}
	return true
}

// Discard drops a parked launch without delivering anything.
func (l *RemoteLauncher) Discard() {
	l.mu.Lock()
	l.pending = nil
	l.mu.Unlock()
}

func normalizePayload(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 || string(payload) == "null" {
		return json.RawMessage(`{}`)
	}
	return payload
}
