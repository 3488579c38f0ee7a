package mqtt

import (
	"fmt"
	"sync"

	"github.com/kilianp07/sop/core/model"
)

// MockPublisher records published outputs, used in tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string][]model.CycleOutput
	FailIDs  map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages: make(map[string][]model.CycleOutput),
		FailIDs:  make(map[string]bool),
	}
}

// PublishSOP records the output or returns an error if configured to fail.
func (m *MockPublisher) PublishSOP(packID string, out model.CycleOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[packID] {
		return fmt.Errorf("publish failed")
	}
	m.Messages[packID] = append(m.Messages[packID], out)
	return nil
}

// Count returns the number of outputs recorded for a pack.
func (m *MockPublisher) Count(packID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages[packID])
}
