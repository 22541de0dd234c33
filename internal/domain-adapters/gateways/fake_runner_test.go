package gateways

import (
	"context"
	"sync"

	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

// fakeRunner replays canned results keyed by tool name and records every call
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]*gateways.CommandResult
	calls   []gateways.CommandConfig
	// onRun lets a test simulate side effects such as a clone writing files
	onRun func(config gateways.CommandConfig) *gateways.CommandResult
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]*gateways.CommandResult)}
}

func (f *fakeRunner) stdout(tool, out string) *fakeRunner {
	f.results[tool] = &gateways.CommandResult{Stdout: []byte(out)}
	return f
}

func (f *fakeRunner) result(tool string, res *gateways.CommandResult) *fakeRunner {
	f.results[tool] = res
	return f
}

func (f *fakeRunner) Run(_ context.Context, config gateways.CommandConfig) *gateways.CommandResult {
	f.mu.Lock()
	f.calls = append(f.calls, config)
	f.mu.Unlock()

	if f.onRun != nil {
		return f.onRun(config)
	}
	if res, ok := f.results[config.Name]; ok {
		return res
	}
	return &gateways.CommandResult{}
}

func (f *fakeRunner) callsFor(tool string) []gateways.CommandConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []gateways.CommandConfig
	for _, c := range f.calls {
		if c.Name == tool {
			out = append(out, c)
		}
	}
	return out
}
