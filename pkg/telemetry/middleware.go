package telemetry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

const (
	TracerName    = "tenant-auth/http"
	TraceIDHeader = "X-Trace-ID"

	AttrEnduserID   = "enduser.id"
	AttrEnduserRole = "enduser.role"
	// AttrAuthOutcome records how the auth layer answered the request
	AttrAuthOutcome = "auth.outcome"
)

// Values of AttrAuthOutcome
const (
	OutcomeAnonymous       = "anonymous"
	OutcomeAuthenticated   = "authenticated"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeThrottled       = "throttled"
)

// TracingMiddleware opens a server span per request, continuing any incoming
// W3C trace context. It must run before the authentication gate: once the chain
// returns, the span is tagged with the principal the gate established and with
// the auth outcome derived from the response status.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		// Path only. Query strings may carry credentials.
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(c.Request.Method),
				semconv.HTTPRoute(route),
				attribute.String("url.path", c.Request.URL.Path),
				attribute.String("http.client_ip", c.ClientIP()),
				attribute.String("service.name", serviceName),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header(TraceIDHeader, sc.TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		principal, authenticated := domain.PrincipalFrom(c.Request.Context())
		span.SetAttributes(
			semconv.HTTPStatusCode(status),
			attribute.String(AttrAuthOutcome, authOutcome(status, authenticated)),
		)
		if authenticated {
			span.SetAttributes(
				attribute.String(AttrEnduserID, principal.Username),
				attribute.String(AttrEnduserRole, string(principal.Role)),
			)
		}

		for _, err := range c.Errors {
			span.RecordError(err.Err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func authOutcome(status int, authenticated bool) string {
	switch {
	case status == http.StatusUnauthorized:
		return OutcomeUnauthenticated
	case status == http.StatusForbidden:
		return OutcomeForbidden
	case status == http.StatusTooManyRequests:
		return OutcomeThrottled
	case authenticated:
		return OutcomeAuthenticated
	default:
		return OutcomeAnonymous
	}
}
