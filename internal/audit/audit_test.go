package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// base is a fixed reference time; the suite sets explicit timestamps so
// ordering does not depend on wall-clock resolution.
var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// runLoggerSuite exercises the AuditLogger contract. Every backend test
// calls it with a fresh, empty logger.
func runLoggerSuite(t *testing.T, newLogger func(t *testing.T) AuditLogger) {
	t.Run("log assigns id and timestamp", func(t *testing.T) {
		logger := newLogger(t)
		ctx := context.Background()

		event := &AuditEvent{
			Action:     ActionPublish,
			Provider:   "netlify",
			Outcome:    OutcomeSuccess,
			URL:        "https://site.netlify.app",
			RequestID:  "req-1",
			IPAddress:  "192.0.2.1",
			StatusCode: 200,
		}
		if err := logger.Log(ctx, event); err != nil {
			t.Fatalf("Log() error = %v", err)
		}

		events, total, err := logger.List(ctx, ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if total != 1 || len(events) != 1 {
			t.Fatalf("expected 1 event, got total=%d len=%d", total, len(events))
		}
		got := events[0]
		if got.ID == "" {
			t.Error("expected ID to be assigned")
		}
		if got.Timestamp.IsZero() {
			t.Error("expected Timestamp to be assigned")
		}
		if got.Actor != ActorAnonymous {
			t.Errorf("expected anonymous actor, got %q", got.Actor)
		}
		if got.Provider != "netlify" || got.URL != "https://site.netlify.app" || got.RequestID != "req-1" || got.IPAddress != "192.0.2.1" {
			t.Errorf("unexpected event %+v", got)
		}
		if got.StatusCode != 200 {
			t.Errorf("expected status 200, got %d", got.StatusCode)
		}
	})

	t.Run("nil event", func(t *testing.T) {
		if err := newLogger(t).Log(context.Background(), nil); err != nil {
			t.Fatalf("Log(nil) should not error, got %v", err)
		}
	})

	t.Run("newest first", func(t *testing.T) {
		logger := newLogger(t)
		ctx := context.Background()
		for i, id := range []string{"a", "b", "c"} {
			event := &AuditEvent{
				ID:         id,
				Timestamp:  base.Add(time.Duration(i) * time.Second),
				Action:     ActionExport,
				Outcome:    OutcomeSuccess,
				StatusCode: 200,
			}
			if err := logger.Log(ctx, event); err != nil {
				t.Fatalf("Log() error = %v", err)
			}
		}
		events, _, err := logger.List(ctx, ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(events) != 3 || events[0].ID != "c" || events[2].ID != "a" {
			t.Fatalf("expected newest first, got %v", ids(events))
		}
		if !events[0].Timestamp.Equal(base.Add(2 * time.Second)) {
			t.Errorf("expected timestamp preserved, got %v", events[0].Timestamp)
		}
	})

	t.Run("filtering", func(t *testing.T) {
		logger := newLogger(t)
		ctx := context.Background()
		seed := []*AuditEvent{
			{Action: ActionPublish, Provider: "netlify", Outcome: OutcomeSuccess, StatusCode: 200},
			{Action: ActionPublish, Provider: "vercel", Outcome: OutcomeFallback, StatusCode: 200},
			{Action: ActionPublish, Provider: "vercel", Outcome: OutcomeFailure, ErrorKind: "DeployError", StatusCode: 500},
			{Action: ActionExport, Outcome: OutcomeSuccess, StatusCode: 200},
		}
		for i, e := range seed {
			e.Timestamp = base.Add(time.Duration(i) * time.Minute)
			if err := logger.Log(ctx, e); err != nil {
				t.Fatalf("Log() error = %v", err)
			}
		}

		since := base.Add(2 * time.Minute)
		until := base.Add(time.Minute)
		tests := []struct {
			name     string
			opts     ListOptions
			expected int
		}{
			{"all", ListOptions{}, 4},
			{"by action", ListOptions{Action: ActionPublish}, 3},
			{"by provider", ListOptions{Provider: "vercel"}, 2},
			{"by outcome", ListOptions{Outcome: OutcomeSuccess}, 2},
			{"combined", ListOptions{Provider: "vercel", Outcome: OutcomeFailure}, 1},
			{"since", ListOptions{Since: &since}, 2},
			{"until", ListOptions{Until: &until}, 2},
			{"no matches", ListOptions{Provider: "nonexistent"}, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, total, err := logger.List(ctx, tt.opts)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if total != tt.expected {
					t.Errorf("expected total %d, got %d", tt.expected, total)
				}
				if len(result) != tt.expected {
					t.Errorf("expected %d events, got %d", tt.expected, len(result))
				}
			})
		}
	})

	t.Run("pagination", func(t *testing.T) {
		logger := newLogger(t)
		ctx := context.Background()
		for i := 0; i < 25; i++ {
			event := &AuditEvent{
				Timestamp:  base.Add(time.Duration(i) * time.Second),
				Action:     ActionGenerate,
				Outcome:    OutcomeSuccess,
				StatusCode: 200,
			}
			if err := logger.Log(ctx, event); err != nil {
				t.Fatalf("Log() error = %v", err)
			}
		}

		tests := []struct {
			name          string
			opts          ListOptions
			expectedLen   int
			expectedTotal int
		}{
			{"first page", ListOptions{Limit: 10, Offset: 0}, 10, 25},
			{"second page", ListOptions{Limit: 10, Offset: 10}, 10, 25},
			{"third page (partial)", ListOptions{Limit: 10, Offset: 20}, 5, 25},
			{"beyond range", ListOptions{Limit: 10, Offset: 100}, 0, 25},
			{"default limit", ListOptions{Limit: 0}, 25, 25},
			{"max limit enforcement", ListOptions{Limit: 2000}, 25, 25},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, total, err := logger.List(ctx, tt.opts)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if total != tt.expectedTotal {
					t.Errorf("expected total %d, got %d", tt.expectedTotal, total)
				}
				if len(result) != tt.expectedLen {
					t.Errorf("expected %d events, got %d", tt.expectedLen, len(result))
				}
			})
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newLogger(t).Ping(context.Background()); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	})
}

func ids(events []*AuditEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestMemoryAuditLogger(t *testing.T) {
	runLoggerSuite(t, func(*testing.T) AuditLogger { return NewMemoryAuditLogger() })
}

func TestMemoryAuditLogger_MaxEvents(t *testing.T) {
	logger := NewMemoryAuditLogger(WithMaxEvents(5))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := logger.Log(ctx, &AuditEvent{Action: ActionExport, Outcome: OutcomeSuccess}); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	events, total, err := logger.List(ctx, ListOptions{Limit: 100})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 || len(events) != 5 {
		t.Fatalf("expected 5 events, got total=%d len=%d", total, len(events))
	}
}

func TestMemoryAuditLogger_Concurrency(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	var wg sync.WaitGroup
	numGoroutines := 100
	eventsPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				if err := logger.Log(ctx, &AuditEvent{Action: ActionPublish, Outcome: OutcomeFallback}); err != nil {
					t.Errorf("Log() error = %v", err)
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, _, err := logger.List(ctx, ListOptions{Limit: 10}); err != nil {
					t.Errorf("List() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	_, total, err := logger.List(ctx, ListOptions{Limit: 10000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if expected := numGoroutines * eventsPerGoroutine; total != expected {
		t.Errorf("expected %d events, got %d", expected, total)
	}
}

func TestMemoryAuditLogger_ImmutableResults(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	event := &AuditEvent{Actor: "wm_abcd****", Action: ActionPublish, Outcome: OutcomeSuccess}
	if err := logger.Log(ctx, event); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	event.Actor = "modified_actor"

	events, _, _ := logger.List(ctx, ListOptions{Limit: 10})
	if events[0].Actor != "wm_abcd****" {
		t.Errorf("expected Actor 'wm_abcd****', got %q (modification leaked)", events[0].Actor)
	}

	events[0].Actor = "another_modification"
	events2, _, _ := logger.List(ctx, ListOptions{Limit: 10})
	if events2[0].Actor != "wm_abcd****" {
		t.Errorf("expected Actor 'wm_abcd****', got %q (returned modification leaked)", events2[0].Actor)
	}
}

func TestWithMaxEvents(t *testing.T) {
	tests := []struct {
		name      string
		maxEvents int
		expected  int
	}{
		{"custom max", 100, 100},
		{"zero preserves default", 0, DefaultMaxEvents},
		{"negative preserves default", -1, DefaultMaxEvents},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMemoryAuditLogger(WithMaxEvents(tt.maxEvents)).maxEvents; got != tt.expected {
				t.Errorf("expected maxEvents %d, got %d", tt.expected, got)
			}
		})
	}
}
