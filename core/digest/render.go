package digest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"

	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/task"
)

const nothing = "_Nothing this week._"

// SortTasks orders tasks by title, case-insensitively, then by id.
func SortTasks(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := strings.ToLower(tasks[i].Title), strings.ToLower(tasks[j].Title)
		if a != b {
			return a < b
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// SortEvents orders instances chronologically, then by title.
func SortEvents(events []event.Instance) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.InstanceID < b.InstanceID
	})
}

// SortAnnouncements orders announcements by publish time, then by title.
func SortAnnouncements(anns []announcement.Announcement) {
	publishedAt := func(a announcement.Announcement) time.Time {
		if a.PublishedAt != nil {
			return *a.PublishedAt
		}
		return a.CreatedAt
	}
	sort.SliceStable(anns, func(i, j int) bool {
		a, b := publishedAt(anns[i]), publishedAt(anns[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		if anns[i].Title != anns[j].Title {
			return anns[i].Title < anns[j].Title
		}
		return anns[i].ID < anns[j].ID
	})
}

// RenderText renders s as Markdown, with times shown on the wall clock of loc.
// The output only depends on s and loc.
func RenderText(s WeekSummary, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	tasks := append([]task.Task(nil), s.Tasks...)
	events := append([]event.Instance(nil), s.Events...)
	anns := append([]announcement.Announcement(nil), s.Announcements...)
	SortTasks(tasks)
	SortEvents(events)
	SortAnnouncements(anns)

	var b strings.Builder
	start := s.Week.StartsOn.In(loc)
	last := s.Week.EndsOn.In(loc).AddDate(0, 0, -1)
	fmt.Fprintf(&b, "# Week %s (%s to %s)\n\n", s.Week.Label, start.Format("Mon Jan 2"), last.Format("Mon Jan 2"))

	fmt.Fprintf(&b, "## Tasks (%d/%d done, %d%%)\n\n", s.TasksDone, s.TasksTotal, s.CompletionPct)
	if len(tasks) == 0 {
		b.WriteString(nothing + "\n")
	}
	for _, t := range tasks {
		mark := " "
		if t.IsDone() {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, t.Title)
	}

	b.WriteString("\n## Events\n\n")
	if len(events) == 0 {
		b.WriteString(nothing + "\n")
	}
	for _, in := range events {
		st, en := in.StartsAt.In(loc), in.EndsAt.In(loc)
		fmt.Fprintf(&b, "- **%s** %s-%s %s", st.Format("Mon Jan 2"), st.Format("15:04"), en.Format("15:04"), in.Title)
		if in.Location != "" {
			fmt.Fprintf(&b, " (%s)", in.Location)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Announcements\n\n")
	if len(anns) == 0 {
		b.WriteString(nothing + "\n")
	}
	for _, a := range anns {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", a.Title, a.Body)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// RenderHTML converts digest Markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return buf.String(), nil
}
