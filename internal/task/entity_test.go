package task

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskflow/pkg/cerr"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"Pending", "In Progress", "Completed"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}
	for _, s := range []string{"Archived", "pending", "InProgress", "in_progress", ""} {
		_, err := ParseStatus(s)
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "status %q", s)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]Status{
		"Pending":     StatusPending,
		"pending":     StatusPending,
		"In Progress": StatusInProgress,
		"in_progress": StatusInProgress,
		"in-progress": StatusInProgress,
		"InProgress":  StatusInProgress,
		"completed":   StatusCompleted,
		" COMPLETED ": StatusCompleted,
	}
	for raw, want := range tests {
		got, err := NormalizeStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := NormalizeStatus("archived")
	assert.Error(t, err)
}

func TestCreateParams_Validate(t *testing.T) {
	assert.NoError(t, CreateParams{Title: "x"}.Validate())
	for _, title := range []string{"", " ", "\t \n"} {
		assert.True(t, cerr.IsCode(CreateParams{Title: title}.Validate(), cerr.InvalidArgument))
	}
}

func TestNew(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 6789, time.FixedZone("JST", 9*3600))
	got := New(CreateParams{Title: "t", Description: "d", IsAIEnhanced: true}, now)

	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.True(t, got.IsAIEnhanced)
	assert.Equal(t, now.UTC().Truncate(time.Microsecond), got.CreatedAt)

	id, err := ulid.ParseStrict(got.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())

	later := New(CreateParams{Title: "u"}, now.Add(time.Millisecond))
	assert.Less(t, got.ID, later.ID)
}

func TestTask_Clone(t *testing.T) {
	orig := &Task{ID: "a", Status: StatusPending}
	c := orig.Clone()
	c.Status = StatusCompleted
	assert.Equal(t, StatusPending, orig.Status)
}
