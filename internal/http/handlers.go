/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/HamedShams/release-pulse/internal/health"
	"github.com/HamedShams/release-pulse/internal/jobs"
	"github.com/HamedShams/release-pulse/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type service interface {
	TicketsForRelease(ctx context.Context, releaseID string) ([]domain.Ticket, error)
	CheckForUpdates(ctx context.Context, releaseID string) (int, error)
	CheckConventions(ctx context.Context, releaseID string) (int, error)
	Refresh(ctx context.Context, releaseID string) error
	CurrentReleaseID() string
}

type store interface {
	GetRelease(ctx context.Context, releaseID string) (*domain.Release, error)
	ListReleases(ctx context.Context) ([]domain.Release, error)
	TicketStatistics(ctx context.Context, releaseID string) (*repo.TicketStats, error)
	Notifications(ctx context.Context, releaseID string, includeRead bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, releaseID string) (int64, error)
	Violations(ctx context.Context, releaseID string, includeResolved bool) ([]domain.Violation, error)
	ResolveViolation(ctx context.Context, id int64) error
	CreateNote(ctx context.Context, n domain.Note) (int64, error)
	Notes(ctx context.Context, f repo.NoteFilter) ([]domain.Note, error)
	UpdateNote(ctx context.Context, id int64, title, content string, tags []string) error
	DeleteNote(ctx context.Context, id int64) error
}

type monitor interface {
	Check(ctx context.Context) health.Report
}

type scheduler interface {
	Status() jobs.Status
	RunSnapshotNow()
}

type Handlers struct {
	cfg   config.Config
	log   zerolog.Logger
	svc   service
	store store
	mon   monitor
	sched scheduler
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service, st store, mon monitor, sched scheduler) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, store: st, mon: mon, sched: sched}
}

// storeErr maps repo failures onto HTTP statuses: missing rows are 404,
// transient faults 503, the rest 500.
func (h *Handlers) storeErr(c *gin.Context, err error) {
	switch {
	case repo.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case repo.KindOf(err) == repo.KindTransient:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store temporarily unavailable"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("store error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handlers) Healthz(c *gin.Context) {
	r := h.mon.Check(c.Request.Context())
	code := http.StatusOK
	if !r.Overall.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, r)
}

func (h *Handlers) ListReleases(c *gin.Context) {
	out, err := h.store.ListReleases(c.Request.Context())
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": out, "current": h.svc.CurrentReleaseID()})
}

func (h *Handlers) GetRelease(c *gin.Context) {
	rel, err := h.store.GetRelease(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (h *Handlers) ReleaseTickets(c *gin.Context) {
	tickets, err := h.svc.TicketsForRelease(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (h *Handlers) ReleaseStats(c *gin.Context) {
	stats, err := h.store.TicketStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) Notifications(c *gin.Context) {
	includeRead := c.Query("include_read") == "true"
	out, err := h.store.Notifications(c.Request.Context(), c.Param("id"), includeRead)
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out, "count": len(out)})
}

func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.store.MarkRead(c.Request.Context(), id); err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.store.MarkAllRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// SyncRelease kicks an on-demand sync in the background, detached from the
// request context so a client disconnect cannot cancel it mid-write.
func (h *Handlers) SyncRelease(c *gin.Context) {
	releaseID := c.Param("id")
	go func() {
		if _, err := h.svc.CheckForUpdates(context.Background(), releaseID); err != nil {
			h.log.Error().Err(err).Str("release", releaseID).Msg("background sync failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "release": releaseID})
}

func (h *Handlers) Violations(c *gin.Context) {
	includeResolved := c.Query("include_resolved") == "true"
	out, err := h.store.Violations(c.Request.Context(), c.Param("id"), includeResolved)
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"violations": out, "count": len(out)})
}

func (h *Handlers) CheckConventions(c *gin.Context) {
	created, err := h.svc.CheckConventions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *Handlers) ResolveViolation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.store.ResolveViolation(c.Request.Context(), id); err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type noteRequest struct {
	Title     string   `json:"title" binding:"required"`
	Content   string   `json:"content"`
	Type      string   `json:"note_type"`
	TicketKey *string  `json:"ticket_key"`
	ReleaseID *string  `json:"release_id"`
	Tags      []string `json:"tags"`
}

func (h *Handlers) CreateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = domain.NoteTypeRelease
	}
	id, err := h.store.CreateNote(c.Request.Context(), domain.Note{
		Title:     req.Title,
		Content:   req.Content,
		Type:      req.Type,
		TicketKey: req.TicketKey,
		ReleaseID: req.ReleaseID,
		Tags:      req.Tags,
	})
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handlers) ListNotes(c *gin.Context) {
	f := repo.NoteFilter{
		Type:      c.Query("type"),
		ReleaseID: c.Query("release_id"),
		TicketKey: c.Query("ticket_key"),
	}
	out, err := h.store.Notes(c.Request.Context(), f)
	if err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": out, "count": len(out)})
}

func (h *Handlers) UpdateNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.UpdateNote(c.Request.Context(), id, req.Title, req.Content, req.Tags); err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) DeleteNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.store.DeleteNote(c.Request.Context(), id); err != nil {
		h.storeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sched.Status())
}

func (h *Handlers) RunSnapshotNow(c *gin.Context) {
	go h.sched.RunSnapshotNow()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) RefreshRelease(c *gin.Context) {
	releaseID := c.Param("id")
	if err := h.svc.Refresh(c.Request.Context(), releaseID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
