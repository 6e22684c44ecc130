package maxsize

import "testing"

func TestBytesToFree(t *testing.T) {
	p := &Policy{MaxBytes: 1000}

	tests := []struct {
		name    string
		current int64
		want    int64
	}{
		{"empty", 0, 0},
		{"under limit", 900, 0},
		{"at limit", 1000, 0},
		{"over limit frees to low water", 1500, 700},
		{"just over", 1001, 201},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.BytesToFree(tt.current)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BytesToFree(%d) = %d, want %d", tt.current, got, tt.want)
			}
		})
	}
}

func TestCustomLowWater(t *testing.T) {
	p := &Policy{MaxBytes: 1000, LowWater: 0.5}
	got, _ := p.BytesToFree(1200)
	if got != 700 {
		t.Errorf("expected 700, got %d", got)
	}

	p = &Policy{MaxBytes: 1000, LowWater: 3}
	if p.Target() != 800 {
		t.Errorf("expected invalid low water to fall back to 800, got %d", p.Target())
	}
}

func TestUnlimited(t *testing.T) {
	p := &Policy{}
	got, _ := p.BytesToFree(1 << 40)
	if got != 0 {
		t.Errorf("expected no eviction without a limit, got %d", got)
	}
}
