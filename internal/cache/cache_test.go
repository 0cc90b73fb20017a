package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("summary", "u1"); got != "summary:u1" {
		t.Errorf("Key() = %q, want summary:u1", got)
	}
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get() = ok %v err %v, want miss", ok, err)
	}
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"bad scheme", "http://localhost:6379"},
		{"bad db", "redis://localhost:6379/notanumber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRedis(context.Background(), tt.url); err == nil {
				t.Error("expected error")
			}
		})
	}
}
