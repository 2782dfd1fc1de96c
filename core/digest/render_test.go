package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/week"
)

var newYork = clock.MustLoadLocation("America/New_York")

func sampleSummary() WeekSummary {
	wk := week.New("p1", time.Date(2024, 9, 2, 0, 0, 0, 0, newYork))
	mon := time.Date(2024, 9, 2, 18, 0, 0, 0, newYork).UTC()
	wed := time.Date(2024, 9, 4, 9, 30, 0, 0, newYork).UTC()
	published := time.Date(2024, 9, 3, 12, 0, 0, 0, time.UTC)
	return WeekSummary{
		ParishID: "p1",
		Week:     wk,
		Tasks: []task.Task{
			{ID: "t3", Title: "flowers", Status: task.StatusDone},
			{ID: "t1", Title: "Bulletin", Status: task.StatusOpen},
			{ID: "t2", Title: "Coffee", Status: task.StatusDone},
		},
		Events: []event.Instance{
			{InstanceID: "e2", Title: "Bible study", StartsAt: wed, EndsAt: wed.Add(time.Hour)},
			{InstanceID: "e1", Title: "Rehearsal", Location: "Church hall", StartsAt: mon, EndsAt: mon.Add(time.Hour)},
		},
		Announcements: []announcement.Announcement{
			{ID: "a1", Title: "Feast", Body: "Sunday after Mass.", PublishedAt: &published},
		},
		TasksDone:     2,
		TasksTotal:    3,
		CompletionPct: 67,
	}
}

func TestRenderText(t *testing.T) {
	want := strings.Join([]string{
		"# Week 2024-W36 (Mon Sep 2 to Sun Sep 8)",
		"",
		"## Tasks (2/3 done, 67%)",
		"",
		"- [ ] Bulletin",
		"- [x] Coffee",
		"- [x] flowers",
		"",
		"## Events",
		"",
		"- **Mon Sep 2** 18:00-19:00 Rehearsal (Church hall)",
		"- **Wed Sep 4** 09:30-10:30 Bible study",
		"",
		"## Announcements",
		"",
		"### Feast",
		"",
		"Sunday after Mass.",
		"",
	}, "\n")
	assert.Equal(t, want, RenderText(sampleSummary(), newYork))
}

func TestRenderText_deterministic(t *testing.T) {
	s := sampleSummary()
	first := RenderText(s, newYork)

	// input order does not matter and inputs are left untouched
	s.Tasks[0], s.Tasks[2] = s.Tasks[2], s.Tasks[0]
	s.Events[0], s.Events[1] = s.Events[1], s.Events[0]
	tasksBefore := append([]task.Task(nil), s.Tasks...)
	assert.Equal(t, first, RenderText(s, newYork))
	assert.Equal(t, tasksBefore, s.Tasks)
}

func TestRenderText_empty(t *testing.T) {
	s := WeekSummary{Week: week.New("p1", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))}
	out := RenderText(s, nil)
	assert.True(t, strings.HasPrefix(out, "# Week 2025-W01 (Mon Dec 30 to Sun Jan 5)\n"))
	assert.Equal(t, 3, strings.Count(out, nothing))
	assert.Contains(t, out, "## Tasks (0/0 done, 0%)")
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(RenderText(sampleSummary(), newYork))
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Week 2024-W36 (Mon Sep 2 to Sun Sep 8)</h1>")
	assert.Contains(t, html, "<h2>Events</h2>")
	assert.Contains(t, html, "<strong>Mon Sep 2</strong>")
}
