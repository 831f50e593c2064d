package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"affiliate-ledger/pkg/apperror"
	"affiliate-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"

	requestIDLength    = 21
	maxInboundIDLength = 64
)

// TrackAuth guards the track endpoints with HTTP Basic auth where the
// password is the shared track token. The username is ignored.
func TrackAuth(token string, log zerolog.Logger) gin.HandlerFunc {
	return tokenAuth("track", token, apperror.ErrInvalidTrackToken, log)
}

// ManagementAuth guards operator endpoints with the management token, in
// the same Basic auth shape as TrackAuth.
func ManagementAuth(token string, log zerolog.Logger) gin.HandlerFunc {
	return tokenAuth("management", token, apperror.ErrInvalidManagementToken, log)
}

// tokenAuth rejects every request when token is empty.
func tokenAuth(realm, token string, reject func() *apperror.AppError, log zerolog.Logger) gin.HandlerFunc {
	expected := []byte(token)
	challenge := fmt.Sprintf("Basic realm=%q", realm)
	return func(c *gin.Context) {
		_, password, ok := c.Request.BasicAuth()
		if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(password), expected) != 1 {
			log.Warn().
				Str("realm", realm).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Bool("credentials_present", ok).
				Msg("request rejected: bad token")
			c.Header("WWW-Authenticate", challenge)
			response.Error(c, reject())
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestID stores a request id under response.RequestIDKey and echoes it in
// the response header. A well-formed inbound X-Request-ID is kept.
func RequestID() gin.HandlerFunc {
	generate, err := nanoid.Standard(requestIDLength)
	if err != nil {
		panic(fmt.Sprintf("request id generator: %v", err))
	}
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxInboundIDLength || !isPrintableASCII(id) {
			id = generate()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestLogger logs one line per request, leveled by status.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(response.RequestIDKey)).
			Msg("http request")
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(response.RequestIDKey)).
					Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects bodies over maxBytes. A declared Content-Length over
// the limit is refused up front; otherwise reads past the limit fail.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
