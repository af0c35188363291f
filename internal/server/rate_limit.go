package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/config"
	"github.com/consensusai/consensus/internal/observability/logger"
	obsmetrics "github.com/consensusai/consensus/internal/observability/metrics"
	"github.com/consensusai/consensus/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitReasonUserRate = "user-rate"
	rateLimitReasonQuota    = "quota"
)

// UserRateLimit applies the per-user token bucket to the user named in the path.
func (s *Server) UserRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.allowUser(c, userIDParam(c)) {
			return
		}
		c.Next()
	}
}

// allowUser aborts the request and returns false when userID is over its rate.
func (s *Server) allowUser(c *gin.Context, userID string) bool {
	if !s.userLimiter.Enabled() || userID == "" {
		return true
	}

	ctx := c.Request.Context()
	endpoint := normalizeRateLimitEndpoint(c)

	result, err := s.userLimiter.AllowUser(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("user rate limit check failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return false
	}
	setRateLimitHeaders(c, result)
	if !result.Allowed {
		denyRateLimit(c, endpoint, rateLimitReasonUserRate, result, s.obsMetrics)
		return false
	}

	recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
	return true
}

// QuotaGate rejects messages once the user's monthly quota is exhausted.
func (s *Server) QuotaGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enforceQuota(c, userIDParam(c)) {
			return
		}
		c.Next()
	}
}

// enforceQuota aborts the request and returns false when userID may not send
// another message. It is a no-op unless BILLING_ENFORCE_QUOTA is on.
func (s *Server) enforceQuota(c *gin.Context, userID string) bool {
	if !s.cfg.EnforceQuota {
		return true
	}

	decision, err := s.billingSvc.EnforceQuota(c.Request.Context(), userID)
	setQuotaHeaders(c, decision)
	if err != nil {
		if decision.Tier != "" && !decision.Allowed {
			recordRateLimitDenied(c.Request.Context(), normalizeRateLimitEndpoint(c), rateLimitReasonQuota, s.obsMetrics)
		}
		AbortWithError(c, err)
		return false
	}
	return true
}

func setRateLimitHeaders(c *gin.Context, result *ratelimit.RateLimitResult) {
	if result == nil || result.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))
	if !result.ResetTime.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
	}
}

func setQuotaHeaders(c *gin.Context, decision billingdomain.QuotaDecision) {
	if decision.Tier == "" {
		return
	}
	c.Header("X-Quota-Tier", decision.Tier)
	if decision.MessagesLimit == config.Unlimited {
		c.Header("X-Quota-Limit", "unlimited")
		return
	}
	c.Header("X-Quota-Limit", strconv.FormatInt(decision.MessagesLimit, 10))
	c.Header("X-Quota-Remaining", strconv.FormatInt(max(decision.MessagesRemaining, 0), 10))
}

func denyRateLimit(c *gin.Context, endpoint, reason string, result *ratelimit.RateLimitResult, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	retryAfter := 1
	if result != nil && result.RetryAfter > 0 {
		retryAfter = int(math.Ceil(result.RetryAfter.Seconds()))
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
