package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the /health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Objects  string `json:"objects"`
	Events   string `json:"events"`
}

// Service reports liveness and which backends the process is wired to.
type Service struct {
	db      Pinger
	objects string
	events  string
}

// NewService constructs a health service. db is nil when repositories are in memory.
func NewService(db Pinger, objects, events string) *Service {
	return &Service{db: db, objects: objects, events: events}
}

// Check pings the database with a short timeout. A failed ping marks the process unhealthy.
func (s *Service) Check(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory", Objects: s.objects, Events: s.events}
	if s.db == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "down"
		return st
	}
	st.Database = "up"
	return st
}
