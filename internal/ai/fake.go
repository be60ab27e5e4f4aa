package ai

import (
	"context"
	"sync"
)

// FakeCompleter replays scripted responses in order; once the script is
// exhausted it keeps returning the last entry. Used to test the classifier
// and the self-correction loop without a live provider.
type FakeCompleter struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	Prompts   []string
	calls     int
}

func (f *FakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Prompts = append(f.Prompts, prompt)
	i := f.calls
	f.calls++

	if i < len(f.Errs) && f.Errs[i] != nil {
		return "", f.Errs[i]
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	if i >= len(f.Responses) {
		i = len(f.Responses) - 1
	}
	return f.Responses[i], nil
}

// Calls returns how many completions were requested.
func (f *FakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
