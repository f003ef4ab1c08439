/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/HamedShams/release-pulse/internal/domain"
)

// Mock is an in-memory tracker for demo and local runs. It generates a
// fixed roster of tickets per release and drifts their fields slightly on
// each fetch, so the diff pipeline has real change events to report without
// a live Jira behind it.
type Mock struct {
	mu       sync.Mutex
	project  string
	rng      *rand.Rand
	releases map[string][]domain.Ticket
}

func NewMock(project string) *Mock {
	if project == "" {
		project = "PROJ"
	}
	return &Mock{
		project:  project,
		rng:      rand.New(rand.NewSource(42)),
		releases: make(map[string][]domain.Ticket),
	}
}

var (
	mockStatuses   = []string{"To Do", "In Progress", "In Review", "Done", "Blocked"}
	mockPriorities = []string{"Highest", "High", "Medium", "Low", "Lowest"}
	mockTypes      = []string{"Story", "Bug", "Task", "Epic"}
	mockPeople     = []string{"john.doe", "jane.smith", "bob.wilson", "alice.brown"}
	mockFlavors    = []string{"Feature", "Bug fix", "Enhancement", "Investigation"}
)

func (m *Mock) FetchTicketsForRelease(_ context.Context, releaseID string) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roster := m.roster(releaseID)
	out := make([]domain.Ticket, 0, len(roster))
	for i := range roster {
		// small drift so consecutive fetches produce field changes
		if m.rng.Float64() < 0.10 {
			roster[i].Status = mockStatuses[m.rng.Intn(len(mockStatuses))]
			now := time.Now().UTC()
			roster[i].UpdatedDate = &now
		}
		out = append(out, roster[i])
	}
	return out, nil
}

func (m *Mock) Refresh(_ context.Context, releaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roster := m.roster(releaseID)
	for i := range roster {
		if m.rng.Float64() < 0.05 {
			now := time.Now().UTC()
			roster[i].UpdatedDate = &now
			if m.rng.Float64() < 0.5 {
				roster[i].Status = mockStatuses[m.rng.Intn(len(mockStatuses))]
			}
		}
	}
	return nil
}

func (m *Mock) roster(releaseID string) []domain.Ticket {
	if r, ok := m.releases[releaseID]; ok {
		return r
	}
	tickets := make([]domain.Ticket, 0, 20)
	for i := 1; i <= 20; i++ {
		now := time.Now().UTC()
		created := now.AddDate(0, 0, -(1 + m.rng.Intn(30)))
		updated := now.AddDate(0, 0, -m.rng.Intn(7))
		t := domain.Ticket{
			Key:         fmt.Sprintf("%s-%d", m.project, 1000+i),
			ReleaseID:   releaseID,
			Summary:     fmt.Sprintf("Sample ticket %d - %s", i, mockFlavors[m.rng.Intn(len(mockFlavors))]),
			Status:      mockStatuses[m.rng.Intn(len(mockStatuses))],
			Priority:    mockPriorities[m.rng.Intn(len(mockPriorities))],
			IssueType:   mockTypes[m.rng.Intn(len(mockTypes))],
			CreatedDate: &created,
			UpdatedDate: &updated,
		}
		if m.rng.Intn(5) < 4 { // one in five stays unassigned
			a := mockPeople[m.rng.Intn(len(mockPeople))]
			t.Assignee = &a
		}
		r := mockPeople[m.rng.Intn(len(mockPeople))]
		t.Reporter = &r
		raw, _ := json.Marshal(map[string]any{"key": t.Key, "fields": map[string]any{"summary": t.Summary}})
		t.Raw = raw
		tickets = append(tickets, t)
	}
	m.releases[releaseID] = tickets
	return tickets
}
