/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package diff derives change events from two point-in-time captures of a
// release's ticket set. The engine is pure: it never touches a store and
// never fails on malformed input.
package diff

import (
	"sort"

	"github.com/HamedShams/release-pulse/internal/domain"
)

// WatchedFields is the fixed set of ticket fields monitored for changes.
var WatchedFields = []string{"status", "assignee", "priority", "summary"}

// Sentinel stands in for an absent or null field value so that absent and
// present-but-different compare uniformly.
const Sentinel = "None"

// ByKey indexes tickets by their external key. Later duplicates win,
// matching the store's last-writer-wins upsert.
func ByKey(tickets []domain.Ticket) map[string]domain.Ticket {
	m := make(map[string]domain.Ticket, len(tickets))
	for _, t := range tickets {
		if t.Key == "" {
			continue
		}
		m[t.Key] = t
	}
	return m
}

// Changes compares a previous capture against the current one and returns
// the change events: one new_ticket per key only in current, one
// removed_ticket per key only in previous, and one field_changed per
// watched field that differs on a shared key. Events are grouped new,
// removed, changed; order within a group is not contractual (keys are
// sorted here only to keep runs deterministic).
func Changes(previous, current map[string]domain.Ticket) []domain.ChangeEvent {
	var events []domain.ChangeEvent

	for _, key := range sortedKeys(current) {
		if _, ok := previous[key]; ok {
			continue
		}
		t := current[key]
		events = append(events, domain.ChangeEvent{
			Kind:      domain.ChangeNew,
			TicketKey: key,
			ReleaseID: t.ReleaseID,
			Summary:   t.Summary,
		})
	}

	for _, key := range sortedKeys(previous) {
		if _, ok := current[key]; ok {
			continue
		}
		t := previous[key]
		events = append(events, domain.ChangeEvent{
			Kind:      domain.ChangeRemoved,
			TicketKey: key,
			ReleaseID: t.ReleaseID,
			Summary:   t.Summary,
		})
	}

	for _, key := range sortedKeys(current) {
		prev, ok := previous[key]
		if !ok {
			continue
		}
		curr := current[key]
		for _, field := range WatchedFields {
			oldVal := fieldValue(prev, field)
			newVal := fieldValue(curr, field)
			if oldVal == newVal {
				continue
			}
			events = append(events, domain.ChangeEvent{
				Kind:      domain.ChangeField,
				TicketKey: key,
				ReleaseID: curr.ReleaseID,
				Field:     field,
				OldValue:  oldVal,
				NewValue:  newVal,
				Summary:   curr.Summary,
			})
		}
	}

	return events
}

// fieldValue reads a watched field as a string, degrading absent values to
// the sentinel rather than failing.
func fieldValue(t domain.Ticket, field string) string {
	var v string
	switch field {
	case "status":
		v = t.Status
	case "assignee":
		if t.Assignee != nil {
			v = *t.Assignee
		}
	case "priority":
		v = t.Priority
	case "summary":
		v = t.Summary
	case "reporter":
		if t.Reporter != nil {
			v = *t.Reporter
		}
	}
	if v == "" {
		return Sentinel
	}
	return v
}

func sortedKeys(m map[string]domain.Ticket) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
