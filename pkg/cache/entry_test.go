package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		ttl       int
		want      bool
	}{
		{
			name:      "expired entry",
			createdAt: time.Now().Add(-2 * time.Hour),
			ttl:       30,
			want:      true,
		},
		{
			name:      "valid entry",
			createdAt: time.Now(),
			ttl:       30,
			want:      false,
		},
		{
			name:      "just expired",
			createdAt: time.Now().Add(-61 * time.Second),
			ttl:       1,
			want:      true,
		},
		{
			name:      "just inside ttl",
			createdAt: time.Now().Add(-59 * time.Second),
			ttl:       1,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				CreatedAt:  tt.createdAt,
				TTLMinutes: tt.ttl,
			}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_RemainingTTL(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		ttl       int
		wantMin   time.Duration
		wantMax   time.Duration
	}{
		{
			name:      "half consumed",
			createdAt: time.Now().Add(-15 * time.Minute),
			ttl:       30,
			wantMin:   14 * time.Minute,
			wantMax:   16 * time.Minute,
		},
		{
			name:      "already expired",
			createdAt: time.Now().Add(-1 * time.Hour),
			ttl:       30,
			wantMin:   0,
			wantMax:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				CreatedAt:  tt.createdAt,
				TTLMinutes: tt.ttl,
			}
			got := entry.RemainingTTL()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("RemainingTTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEntryInfo_Age(t *testing.T) {
	info := EntryInfo{
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}

	age := info.Age()
	if age < 9*time.Minute || age > 11*time.Minute {
		t.Errorf("Age() = %v, want ~10m", age)
	}
}

func TestEntryInfo_ExpiresAt(t *testing.T) {
	created := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	info := EntryInfo{
		CreatedAt:  created,
		TTLMinutes: 45,
	}

	want := created.Add(45 * time.Minute)
	if got := info.ExpiresAt(); !got.Equal(want) {
		t.Errorf("ExpiresAt() = %v, want %v", got, want)
	}
}
