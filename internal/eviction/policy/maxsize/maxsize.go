package maxsize

// DefaultLowWater is the fraction of MaxBytes a sweep shrinks the cache to.
const DefaultLowWater = 0.8

// Policy triggers eviction when the cache exceeds a fixed size and frees
// enough to get back under LowWater * MaxBytes.
type Policy struct {
	MaxBytes int64
	// LowWater outside (0, 1] falls back to DefaultLowWater.
	LowWater float64
}

func (m *Policy) BytesToFree(currentSize int64) (int64, error) {
	if m.MaxBytes <= 0 || currentSize <= m.MaxBytes {
		return 0, nil
	}
	return currentSize - m.Target(), nil
}

// Target returns the size a sweep aims for.
func (m *Policy) Target() int64 {
	ratio := m.LowWater
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultLowWater
	}
	return int64(float64(m.MaxBytes) * ratio)
}
