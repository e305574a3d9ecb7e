package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status values are the exact literals used on the wire and in the database.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts only the three canonical literals. It is what request
// bodies go through.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus(raw)
	}
	return s, nil
}

// NormalizeStatus maps a stored value onto the canonical form. Older rows
// may carry lower or snake case spellings.
func NormalizeStatus(raw string) (Status, error) {
	if s := Status(raw); s.Valid() {
		return s, nil
	}
	switch strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(raw))) {
	case "pending":
		return StatusPending, nil
	case "in progress", "inprogress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown stored status %q", raw)
}

type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	IsAIEnhanced bool      `json:"isAiEnhanced"`
}

func (t *Task) Clone() *Task {
	c := *t
	return &c
}

type CreateParams struct {
	Title        string
	Description  string
	IsAIEnhanced bool
}

func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired()
	}
	return nil
}

// New builds the row a repository inserts. The id is a ULID of the same
// instant as CreatedAt so (created_at, id) sorts in creation order.
func New(p CreateParams, now time.Time) *Task {
	now = now.UTC().Truncate(time.Microsecond)
	return &Task{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Title:        p.Title,
		Description:  p.Description,
		Status:       StatusPending,
		CreatedAt:    now,
		IsAIEnhanced: p.IsAIEnhanced,
	}
}
