package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tartampluch/remindme/internal/config"
)

// memorySpace is the data shared by every handle of one in-memory store.
type memorySpace struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[*Memory][]chan Change
}

// Memory is an ephemeral backend. Several handles created with Peer share
// the same data, each observing the writes of the others.
type Memory struct {
	space *memorySpace
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{space: &memorySpace{
		data:     make(map[string][]byte),
		watchers: make(map[*Memory][]chan Change),
	}}
}

// Peer returns another handle on the same data.
func (m *Memory) Peer() *Memory {
	return &Memory{space: m.space}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.space.mu.RLock()
	defer m.space.mu.RUnlock()

	v, ok := m.space.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.space.mu.Lock()
	defer m.space.mu.Unlock()

	m.space.data[key] = slices.Clone(value)
	m.notify(Change{Key: key, Value: slices.Clone(value)})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.space.mu.Lock()
	defer m.space.mu.Unlock()

	delete(m.space.data, key)
	m.notify(Change{Key: key})
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.space.mu.RLock()
	defer m.space.mu.RUnlock()

	var keys []string
	for k := range m.space.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close detaches the handle's watchers. The shared data survives.
func (m *Memory) Close() error {
	m.space.mu.Lock()
	defer m.space.mu.Unlock()

	for _, ch := range m.space.watchers[m] {
		close(ch)
	}
	delete(m.space.watchers, m)
	return nil
}

// Watch delivers writes made through other handles of the same store.
func (m *Memory) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, config.WatchBufferSize)

	m.space.mu.Lock()
	m.space.watchers[m] = append(m.space.watchers[m], ch)
	m.space.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.space.mu.Lock()
		defer m.space.mu.Unlock()

		chans := m.space.watchers[m]
		if i := slices.Index(chans, ch); i >= 0 {
			m.space.watchers[m] = slices.Delete(chans, i, i+1)
			close(ch)
		}
	}()
	return ch, nil
}

// notify must be called with the space lock held. A slow watcher misses
// changes rather than blocking writers.
func (m *Memory) notify(c Change) {
	for owner, chans := range m.space.watchers {
		if owner == m {
			continue
		}
		for _, ch := range chans {
			select {
			case ch <- c:
			default:
			}
		}
	}
}
