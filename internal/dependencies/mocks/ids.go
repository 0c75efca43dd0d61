package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
)

// MockIDs hands out predictable identifiers: "<prefix>-1", "<prefix>-2", ...
type MockIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a MockIDs with the given prefix
func NewMockIDs(prefix string) *MockIDs {
	return &MockIDs{prefix: prefix}
}

// New returns the next sequential identifier
func (g *MockIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}
