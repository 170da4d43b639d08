package tui

// MaxOffset exposes the bottom scroll position for tests.
func (v *Vterm) MaxOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxOffset()
}
