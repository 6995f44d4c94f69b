package health

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		want Status
	}{
		{name: "memory", db: nil, want: Status{OK: true, Database: "memory", Objects: "local", Events: "log"}},
		{name: "up", db: pingFunc(func(context.Context) error { return nil }), want: Status{OK: true, Database: "up", Objects: "local", Events: "log"}},
		{name: "down", db: pingFunc(func(context.Context) error { return errors.New("refused") }), want: Status{OK: false, Database: "down", Objects: "local", Events: "log"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewService(tt.db, "local", "log").Check(context.Background())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("status mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
