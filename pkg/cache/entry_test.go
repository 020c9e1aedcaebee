package cache

import (
	"testing"
	"time"
)

func TestEntry_Valid(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{
			name: "fresh entry",
			now:  created.Add(30 * time.Second),
			want: true,
		},
		{
			name: "one nanosecond before expiry",
			now:  created.Add(time.Minute - time.Nanosecond),
			want: true,
		},
		{
			name: "exactly at ttl",
			now:  created.Add(time.Minute),
			want: false,
		},
		{
			name: "long expired",
			now:  created.Add(time.Hour),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{CreatedAt: created, TTL: time.Minute}
			if got := entry.Valid(tt.now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_ValidNil(t *testing.T) {
	var entry *Entry
	if entry.Valid(time.Now()) {
		t.Error("nil entry should never be valid")
	}
}

func TestEntry_Remaining(t *testing.T) {
	created := time.Now()
	entry := &Entry{CreatedAt: created, TTL: time.Minute}

	if got := entry.Remaining(created.Add(20 * time.Second)); got != 40*time.Second {
		t.Errorf("Remaining() = %v, want 40s", got)
	}
	if got := entry.Remaining(created.Add(2 * time.Minute)); got != 0 {
		t.Errorf("Remaining() = %v, want 0 for expired entry", got)
	}
}
