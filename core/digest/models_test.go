package digest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/parokia/core"
)

func TestCompletionPct(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{done: 0, total: 0, want: 0},
		{done: 2, total: 3, want: 67},
		{done: 1, total: 3, want: 33},
		{done: 1, total: 2, want: 50},
		{done: 3, total: 3, want: 100},
		{done: 1, total: 8, want: 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionPct(tt.done, tt.total), "CompletionPct(%d, %d)", tt.done, tt.total)
	}
}

func TestAssertTransition(t *testing.T) {
	tests := []struct {
		name           string
		from, to       Status
		wantTransition bool
		wantValidation bool
	}{
		{name: "draft to draft", from: StatusDraft, to: StatusDraft},
		{name: "draft to published", from: StatusDraft, to: StatusPublished},
		{name: "published to published", from: StatusPublished, to: StatusPublished},
		{name: "published to draft", from: StatusPublished, to: StatusDraft, wantTransition: true},
		{name: "unknown target", from: StatusDraft, to: Status("ARCHIVED"), wantValidation: true},
		{name: "unknown source", from: Status(""), to: StatusDraft, wantValidation: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertTransition(tt.from, tt.to)
			switch {
			case tt.wantTransition:
				assert.True(t, core.IsInvalidTransition(err), "got %v", err)
			case tt.wantValidation:
				assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
			default:
				assert.NoError(t, err)
			}
		})
	}
}
