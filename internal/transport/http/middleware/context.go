package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// CredentialKey is the context key for the authenticated credential
	CredentialKey = "credential"
	// SessionKey is the context key for the authenticated session
	SessionKey = "session"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext adds trace ID and request context to each request
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		reqCtx := &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Set("request_context", reqCtx)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, exists := c.Get("request_context"); exists {
		if ctx, ok := reqCtx.(*RequestContext); ok {
			return ctx
		}
	}
	return nil
}

// ClientMetadata extracts the client attributes carried into tokens and
// session records.
func ClientMetadata(c *gin.Context) domain.ClientMetadata {
	return domain.ClientMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// AuthenticatedCredential returns the credential stored by RequireAuth, nil
// when the request is anonymous.
func AuthenticatedCredential(c *gin.Context) *domain.Credential {
	if value, exists := c.Get(CredentialKey); exists {
		if credential, ok := value.(*domain.Credential); ok {
			return credential
		}
	}
	return nil
}

// AuthenticatedSession returns the session stored by RequireAuth, nil when
// the request is anonymous.
func AuthenticatedSession(c *gin.Context) *domain.Session {
	if value, exists := c.Get(SessionKey); exists {
		if session, ok := value.(*domain.Session); ok {
			return session
		}
	}
	return nil
}
