package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/frame2prompt/pkg/ports"
)

// ChatClient is a mock implementation of ports.ChatClient.
// Without CompleteFunc it answers "reply N" for the N-th request.
type ChatClient struct {
	CompleteFunc func(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error)

	mu       sync.Mutex
	Requests []ports.ChatRequest
}

func (m *ChatClient) Complete(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	m.mu.Lock()
	snapshot := req
	snapshot.Messages = append([]ports.ChatMessage(nil), req.Messages...)
	m.Requests = append(m.Requests, snapshot)
	n := len(m.Requests)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return ports.ChatResponse{Content: fmt.Sprintf("reply %d", n)}, nil
}

var _ ports.ChatClient = (*ChatClient)(nil)

// Limiter counts Wait calls.
type Limiter struct {
	WaitFunc func(ctx context.Context) error

	mu    sync.Mutex
	Waits int
}

func (m *Limiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	m.Waits++
	m.mu.Unlock()

	if m.WaitFunc != nil {
		return m.WaitFunc(ctx)
	}
	return ctx.Err()
}

var _ ports.Limiter = (*Limiter)(nil)
