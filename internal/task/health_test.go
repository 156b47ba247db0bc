package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthScore(t *testing.T) {
	now := time.Date(2026, 6, 11, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		dueDate  string
		progress int
		blocked  bool
		want     int
	}{
		{name: "no due date no blocker", dueDate: "", progress: 0, want: 100},
		{name: "far future due date", dueDate: "2026-12-01", progress: 10, want: 100},
		{name: "ten days overdue caps at forty", dueDate: "2026-06-01", progress: 50, want: 60},
		{name: "one day overdue", dueDate: "2026-06-10", progress: 50, want: 90},
		{name: "due soon with low progress", dueDate: "2026-06-13", progress: 50, want: 80},
		{name: "due soon with high progress", dueDate: "2026-06-13", progress: 80, want: 100},
		{name: "blocked only", dueDate: "", progress: 0, blocked: true, want: 70},
		{name: "overdue and blocked", dueDate: "2026-06-01", progress: 0, blocked: true, want: 30},
		{name: "deep overdue penalty is capped", dueDate: "2026-01-01", progress: 0, blocked: true, want: 30},
		{name: "unparseable due date ignored", dueDate: "soon", progress: 0, want: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HealthScore(tc.dueDate, tc.progress, tc.blocked, now))
		})
	}
}
