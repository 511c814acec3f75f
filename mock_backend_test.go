package imageflow

import (
	"context"
	"sync"
)

// MockBackend is a mock implementation of Backend for tests. It records
// every request it receives.
type MockBackend struct {
	GenerateFunc func(ctx context.Context, req *Request) (*Result, error)
	CloseFunc    func() error

	mu       sync.Mutex
	requests []*Request
}

func (m *MockBackend) Generate(ctx context.Context, req *Request) (*Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &Result{
		Images: []GeneratedImage{{Data: []byte("fake-image"), MIMEType: "image/png"}},
	}, nil
}

func (m *MockBackend) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns how many Generate calls the backend has seen.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Request returns the i-th recorded request.
func (m *MockBackend) Request(i int) *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}
