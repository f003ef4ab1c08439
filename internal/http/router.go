/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, h *Handlers) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/releases", h.ListReleases)
		api.GET("/releases/:id", h.GetRelease)
		api.GET("/releases/:id/tickets", h.ReleaseTickets)
		api.GET("/releases/:id/stats", h.ReleaseStats)
		api.GET("/releases/:id/notifications", h.Notifications)
		api.POST("/releases/:id/notifications/read-all", h.MarkAllNotificationsRead)
		api.POST("/releases/:id/sync", h.SyncRelease)
		api.POST("/releases/:id/refresh", h.RefreshRelease)
		api.GET("/releases/:id/violations", h.Violations)
		api.POST("/releases/:id/violations/check", h.CheckConventions)

		api.POST("/notifications/:id/read", h.MarkNotificationRead)
		api.POST("/violations/:id/resolve", h.ResolveViolation)

		api.GET("/notes", h.ListNotes)
		api.POST("/notes", h.CreateNote)
		api.PUT("/notes/:id", h.UpdateNote)
		api.DELETE("/notes/:id", h.DeleteNote)
	}

	admin := r.Group("/admin")
	{
		admin.GET("/scheduler", h.SchedulerStatus)
		admin.POST("/scheduler/run", h.RunSnapshotNow)
	}

	return r
}
