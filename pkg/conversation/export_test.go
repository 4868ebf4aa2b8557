package conversation

// InFlight reports how many sessions currently hold an event lock.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}

// Expire runs the TTL callback armed by the save with the given generation.
func (m *MemoryStore) Expire(id string, gen uint64) {
	m.expire(id, gen)
}
