package lifetimer

// NoOpLifetimer is used when the lifetime block is not configured.
type NoOpLifetimer struct{}

// Metrics always returns zero values.
func (NoOpLifetimer) Metrics() (scans, hits, misses, removed int64) {
	return 0, 0, 0, 0
}

// Close does nothing and returns nil.
func (NoOpLifetimer) Close() error {
	return nil
}
