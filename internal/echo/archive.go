package echo

import "sync"

// Archive is the process-wide message store. It is safe for concurrent use.
type Archive struct {
	mu       sync.RWMutex
	messages []string
}

func NewArchive(messages ...string) *Archive {
	return &Archive{messages: append([]string(nil), messages...)}
}

// Append stores msg and returns its index.
func (a *Archive) Append(msg string) int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msg)
	return int32(len(a.messages) - 1)
}

func (a *Archive) All() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string{}, a.messages...)
}

func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.messages)
}

// Get returns the messages stored at indices; unknown indices are omitted.
func (a *Archive) Get(indices []int32) map[int32]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[int32]string, len(indices))
	for _, i := range indices {
		if i >= 0 && int(i) < len(a.messages) {
			out[i] = a.messages[i]
		}
	}
	return out
}
