package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
)

func (s *Server) SyncSnapshot(c *gin.Context) {
	bookingID, err := snowflake.ParseString(strings.TrimSpace(c.Param("booking_id")))
	if err != nil {
		AbortWithError(c, newValidationError("booking_id", "invalid_booking_id", "invalid booking id"))
		return
	}

	// The body is optional: a bare sync defaults to publish=false.
	var req struct {
		Publish bool `json:"publish"`
	}
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	snapshot, err := s.snapshots.Upsert(c.Request.Context(), bookingID, req.Publish)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	bookingID, err := snowflake.ParseString(strings.TrimSpace(c.Param("booking_id")))
	if err != nil {
		AbortWithError(c, newValidationError("booking_id", "invalid_booking_id", "invalid booking id"))
		return
	}

	snapshot, err := s.snapshots.Get(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Limit  int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := snapshotdomain.SnapshotStatus(strings.TrimSpace(query.Status))
	if status == "" {
		status = snapshotdomain.StatusReadyToPublish
	}
	if !status.Valid() {
		AbortWithError(c, snapshotdomain.ErrInvalidStatus)
		return
	}

	snapshots, err := s.snapshots.ListByStatus(c.Request.Context(), status, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

// TriggerPublishSweep runs one publish sweep outside its schedule.
func (s *Server) TriggerPublishSweep(c *gin.Context) {
	result, err := s.sched.RunPublishSweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// TriggerReconcileSweep runs one reconcile sweep outside its schedule.
func (s *Server) TriggerReconcileSweep(c *gin.Context) {
	result, err := s.sched.RunReconcileSweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// TriggerRetentionSweep runs one retention sweep outside its schedule.
func (s *Server) TriggerRetentionSweep(c *gin.Context) {
	result, err := s.sched.RunRetentionSweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
