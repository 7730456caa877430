package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MockStorage keeps the stored values in memory.
type MockStorage struct {
	Elements map[Key]interface{}
	mutex    *sync.RWMutex
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Elements: make(map[Key]interface{}),
		mutex:    new(sync.RWMutex),
	}
}

func (m *MockStorage) Store(k Key, value interface{}) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Elements[k] = value
	return nil
}

// Load copies the stored value into the given one, through its json representation.
func (m *MockStorage) Load(k Key, value interface{}) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.Elements[k]
	if !ok {
		return fmt.Errorf("not found '%v': %w", k, NotFoundErr)
	}
	bb, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}
	if err := json.Unmarshal(bb, value); err != nil {
		return fmt.Errorf("could not unmarshal value '%v': %w", err, CouldNotLoadErr)
	}
	return nil
}
