package tracing

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/billingledger/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MiddlewareConfig controls how request failures are described on spans.
type MiddlewareConfig struct {
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware opens a server span per request. Once the handler chain has
// run it is tagged with the resolved tenant and the listing parameters; the
// cursor value itself is never recorded.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	tracer := otel.Tracer("billingledger/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, spanName(c.Request.Method, ""), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withRequestBaggage(ctx, span)
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()

		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		span.SetName(spanName(c.Request.Method, route))

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", routeOrUnknown(route)),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		attrs = append(attrs, listingAttributes(c)...)

		lastErr := c.Errors.Last()
		if lastErr != nil && cfg.ErrorClassifier != nil {
			errorType, errorCode := cfg.ErrorClassifier(lastErr.Err)
			attrs = append(attrs,
				attribute.String("error.type", errorType),
				attribute.String("error.code", errorCode),
			)
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status < http.StatusInternalServerError {
			return
		}
		if lastErr != nil {
			if safeErr := SafeError(lastErr.Err); safeErr != nil {
				span.RecordError(safeErr)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func listingAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if tenantID := strings.TrimSpace(c.GetString("tenant_id")); tenantID != "" {
		attrs = append(attrs, attribute.String("org_id", tenantID))
	}
	if strings.TrimSpace(c.Query("cursor")) != "" {
		attrs = append(attrs, attribute.Bool("ledger.has_cursor", true))
	}
	if limit, err := strconv.Atoi(strings.TrimSpace(c.Query("limit"))); err == nil {
		attrs = append(attrs, attribute.Int("ledger.limit", limit))
	}
	if txType := strings.TrimSpace(c.Query("type")); txType != "" {
		attrs = append(attrs, attribute.String("ledger.transaction_type", txType))
	}
	if customerType := strings.TrimSpace(c.Query("customer_type")); customerType != "" {
		attrs = append(attrs, attribute.String("ledger.customer_type", strings.ToLower(customerType)))
	}
	return attrs
}

func withRequestBaggage(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))

	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func spanName(method, route string) string {
	name := "HTTP " + strings.ToUpper(method)
	if route != "" {
		name += " " + route
	}
	return name
}

func routeOrUnknown(route string) string {
	if route == "" {
		return "unknown"
	}
	return route
}
