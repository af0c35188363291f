package server

import (
	"context"
	"net/http"
	"strings"

	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

type recordFunc func(ctx context.Context, req usagedomain.RecordUsageRequest) (*usagedomain.RecordUsageResponse, error)

func (s *Server) RecordMessage(c *gin.Context) {
	s.recordUsage(c, s.usageSvc.RecordMessage)
}

func (s *Server) RecordDebate(c *gin.Context) {
	s.recordUsage(c, s.usageSvc.RecordDebate)
}

func (s *Server) recordUsage(c *gin.Context, record recordFunc) {
	var req usagedomain.RecordUsageRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = userIDParam(c)
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	}

	resp, err := record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(recordStatus(resp), gin.H{"data": resp})
}

// RecordEvent records an event of any type for the user named in the body.
func (s *Server) RecordEvent(c *gin.Context) {
	var req usagedomain.RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	}
	userID := strings.TrimSpace(req.UserID)
	if !s.allowUser(c, userID) {
		return
	}
	if usagedomain.EventType(strings.ToLower(strings.TrimSpace(string(req.Type)))) == usagedomain.EventTypeMessage &&
		!s.enforceQuota(c, userID) {
		return
	}

	resp, err := s.usageSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(recordStatus(resp), gin.H{"data": resp})
}

func recordStatus(resp *usagedomain.RecordUsageResponse) int {
	if resp != nil && resp.Deduplicated {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (s *Server) GetUsage(c *gin.Context) {
	userID := userIDParam(c)
	ctx := c.Request.Context()

	var (
		agg usagedomain.UsageAggregate
		err error
	)
	if period := optionalQuery(c.Query("period")); period != "" {
		agg, err = s.usageSvc.GetUsageForPeriod(ctx, userID, period)
	} else {
		agg, err = s.usageSvc.GetUsageSummary(ctx, userID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agg})
}

func (s *Server) GetUsageHistory(c *gin.Context) {
	resp, err := s.usageSvc.GetUsageHistory(c.Request.Context(), userIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListEvents(c *gin.Context) {
	var query listEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var eventType usagedomain.EventType
	if raw := optionalQuery(query.Type); raw != "" {
		eventType = usagedomain.EventType(strings.ToLower(raw))
		if !eventType.Valid() {
			AbortWithError(c, newValidationError("type", "unsupported", "type must be message or debate"))
			return
		}
	}

	resp, err := s.usageSvc.ListEvents(c.Request.Context(), usagedomain.ListEventsRequest{
		UserID:    userIDParam(c),
		Period:    optionalQuery(query.Period),
		Type:      eventType,
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Events, "page_info": resp.PageInfo})
}
