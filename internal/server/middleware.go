package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/billingledger/internal/observability/context"
	"github.com/smallbiznis/billingledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billingledger/internal/observability/metrics"
	"github.com/smallbiznis/billingledger/internal/orgcontext"
	"github.com/smallbiznis/billingledger/pkg/telemetry"
	"go.uber.org/zap"
)

const (
	HeaderTenant       = "X-Tenant-ID"
	contextTenantIDKey = "tenant_id"

	rateLimitReasonTenantRate = "tenant-rate"
)

// TenantContext resolves the calling tenant from the X-Tenant-ID header and
// stores it in the request context.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			AbortWithError(c, ErrTenantRequired)
			return
		}
		tenantID, err := snowflake.ParseString(raw)
		if err != nil || tenantID <= 0 {
			AbortWithError(c, newValidationError("tenant", "invalid_tenant", "invalid tenant id"))
			return
		}

		ctx := c.Request.Context()
		ctx = orgcontext.WithOrgID(ctx, int64(tenantID))
		ctx = obscontext.WithOrgID(ctx, tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextTenantIDKey, tenantID.String())

		c.Next()
	}
}

// TransactionListRateLimit takes one token from the tenant's bucket. A failing
// limiter backend rejects with 503.
func (s *Server) TransactionListRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.listLimiter.Enabled() {
			c.Next()
			return
		}

		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok || orgID == 0 {
			AbortWithError(c, ErrTenantRequired)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		res, err := s.listLimiter.AllowTenant(ctx, orgID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("transaction list rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyRateLimit(c, endpoint, orgID.String(), rateLimitReasonTenantRate, res.RetryAfter, s.obsMetrics)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		recordRateLimitAllowed(ctx, endpoint, orgID.String(), s.obsMetrics)
		c.Next()
	}
}

func denyRateLimit(c *gin.Context, endpoint, orgID, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("transaction list rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, orgID, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

func recordRateLimitAllowed(ctx context.Context, endpoint, orgID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, orgID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, orgID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, orgID, endpoint, reason)
}

// HTTPMetrics records request count and latency per route on the Prometheus registry.
func HTTPMetrics(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveAPIRequest(
			normalizeRateLimitEndpoint(c),
			strconv.Itoa(c.Writer.Status()),
			c.GetString(contextTenantIDKey),
			time.Since(start),
		)
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
