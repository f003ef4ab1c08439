package domain

import (
	"encoding/json"
	"time"
)

// Release is a time-boxed unit of work identified by year/week (e.g. week2025.30).
type Release struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ReleaseActive = "active"
	ReleaseClosed = "closed"
)

// Ticket is the current state of an externally-sourced unit of work.
// A write with an existing key fully replaces the prior row.
type Ticket struct {
	Key         string          `json:"key"`
	ReleaseID   string          `json:"release_id"`
	Summary     string          `json:"summary"`
	Status      string          `json:"status"`
	Assignee    *string         `json:"assignee"`
	Priority    string          `json:"priority"`
	IssueType   string          `json:"issue_type"`
	Reporter    *string         `json:"reporter"`
	CreatedDate *time.Time      `json:"created_date"`
	UpdatedDate *time.Time      `json:"updated_date"`
	Raw         json.RawMessage `json:"raw_data,omitempty"`
	LastSynced  time.Time       `json:"last_synced"`
}

// Snapshot is an append-only capture of a release's full ticket set.
type Snapshot struct {
	ID           int64     `json:"id"`
	ReleaseID    string    `json:"release_id"`
	SnapshotDate time.Time `json:"snapshot_date"`
	Tickets      []Ticket  `json:"tickets"`
}

// Notification types emitted by the diff engine and the scheduler.
const (
	NotifyNewTicket       = "new_ticket"
	NotifyRemovedTicket   = "removed_ticket"
	NotifyFieldChanged    = "field_changed"
	NotifySnapshotCreated = "snapshot_created"
)

// SystemTicketKey is the sentinel subject for system-level notifications.
const SystemTicketKey = "SYSTEM"

type Notification struct {
	ID        int64          `json:"id"`
	TicketKey string         `json:"ticket_key"`
	ReleaseID string         `json:"release_id"`
	Type      string         `json:"notification_type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	IsRead    bool           `json:"is_read"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChangeKind discriminates diff engine events.
type ChangeKind string

const (
	ChangeNew     ChangeKind = "new_ticket"
	ChangeRemoved ChangeKind = "removed_ticket"
	ChangeField   ChangeKind = "field_changed"
)

// ChangeEvent is one detected difference between two ticket-set snapshots.
// Field/OldValue/NewValue are set only for ChangeField events.
type ChangeEvent struct {
	Kind      ChangeKind
	TicketKey string
	ReleaseID string
	Field     string
	OldValue  string
	NewValue  string
	Summary   string
}

// Note is a free-text personal note, optionally linked to a release or ticket.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"note_type"`
	TicketKey *string   `json:"ticket_key"`
	ReleaseID *string   `json:"release_id"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	NoteTypeRelease = "release"
	NoteTypeTicket  = "ticket"
)

// Violation records a workflow-convention breach detected on a ticket.
type Violation struct {
	ID          int64     `json:"id"`
	TicketKey   string    `json:"ticket_key"`
	ReleaseID   string    `json:"release_id"`
	Type        string    `json:"violation_type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	DetectedAt  time.Time `json:"detected_at"`
	Resolved    bool      `json:"resolved"`
}

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)
