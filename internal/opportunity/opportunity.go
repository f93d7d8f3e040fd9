// Package opportunity defines the central job-posting entity and its
// approval state machine.
//
// Valid status graph:
//
//	INACTIVE ──► ACTIVE
//
// ACTIVE is terminal. Rejection deletes the record instead of moving it to a
// status, so a rejected opportunity simply stops existing.
package opportunity

import (
	"fmt"

	"github.com/google/uuid"
)

// Status values mirror the status column in PostgreSQL.
type Status string

const (
	StatusInactive Status = "INACTIVE"
	StatusActive   Status = "ACTIVE"
)

// Callback actions carried in approval-keyboard callback data
// ("<action> <opportunity id>").
const (
	CallbackApprove = "approve"
	CallbackRemove  = "remove"
)

// MaxTitleLength bounds titles taken from manual chat submissions.
const MaxTitleLength = 50

// ErrInvalidTransition is returned for any transition outside the status
// graph, including regressions out of ACTIVE.
var ErrInvalidTransition = fmt.Errorf("invalid status transition")

// Opportunity is a single job posting tracked through approval and
// publication.
type Opportunity struct {
	ID          uuid.UUID
	Title       string
	Description string
	Company     string
	Location    string
	Salary      string
	Files       []string
	Status      Status

	// TelegramID is the channel message id of the first published chunk.
	// Zero means unpublished; once set it is never cleared.
	TelegramID int

	// TelegramUserID identifies the chat user behind a manual submission.
	// Zero for pipeline-sourced postings.
	TelegramUserID int64
}

// RawPosting is the unpersisted, source-specific record a fetcher produces.
// It is consumed by the pipeline and discarded.
type RawPosting struct {
	Title       string
	Description string
	Company     string
	Location    string
	Files       []string
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusInactive, StatusActive:
		return st, nil
	}
	return "", fmt.Errorf("unknown opportunity status %q", s)
}

// Transition validates moving from → to. The only legal move is
// INACTIVE → ACTIVE.
func Transition(from, to Status) error {
	if from == StatusInactive && to == StatusActive {
		return nil
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
}

// Published reports whether the opportunity has been published to the
// channel.
func (o Opportunity) Published() bool {
	return o.TelegramID != 0
}
