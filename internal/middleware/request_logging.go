package middleware

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// Masked is substituted for sensitive values in logged payloads
const Masked = "***MASKED***"

// JSON string fields whose values must never reach the logs. Matches
// "field": "value" with optional whitespace, case-insensitively.
var sensitiveJSONFields = regexp.MustCompile(
	`(?i)("(?:password|passwd|pwd|token|access_token|refresh_token|secret|api_?key|authorization|card_?number|cvv|ssn|national_id|email)"\s*:\s*)"[^"]*"`)

// Bearer tokens and basic credentials in header-like values
var sensitiveBearer = regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9\-._~+/=]+`)

// Standalone email addresses in free text
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// MaskSensitiveData replaces credential and PII values in a payload
// with a masking marker, keeping the surrounding structure readable
func MaskSensitiveData(payload string) string {
	masked := sensitiveJSONFields.ReplaceAllString(payload, `$1"`+Masked+`"`)
	masked = sensitiveBearer.ReplaceAllString(masked, "$1 "+Masked)
	masked = emailPattern.ReplaceAllString(masked, Masked)
	return masked
}

type bodyCapture struct {
	gin.ResponseWriter
	buf      *bytes.Buffer
	maxBytes int
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.buf.Len() < w.maxBytes {
		remaining := w.maxBytes - w.buf.Len()
		if len(b) <= remaining {
			w.buf.Write(b)
		} else {
			w.buf.Write(b[:remaining])
		}
	}
	return w.ResponseWriter.Write(b)
}

// RequestResponseLogger logs request and response bodies for API routes
// with PII masked. Bodies over maxBytes are replaced with a size marker
// instead of being logged.
func RequestResponseLogger(logger *logrus.Logger, maxBytes int) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024
	}
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Next()
			return
		}

		requestBody := readRequestBody(c, maxBytes)

		capture := &bodyCapture{
			ResponseWriter: c.Writer,
			buf:            &bytes.Buffer{},
			maxBytes:       maxBytes,
		}
		c.Writer = capture

		c.Next()

		fields := logrus.Fields{
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"correlation_id": tenantctx.CorrelationID(c),
		}
		if requestBody != "" {
			fields["request_body"] = MaskSensitiveData(requestBody)
		}
		if capture.buf.Len() > 0 {
			if c.Writer.Size() > maxBytes {
				fields["response_body"] = fmt.Sprintf("[%d bytes, truncated from log]", c.Writer.Size())
			} else {
				fields["response_body"] = MaskSensitiveData(capture.buf.String())
			}
		}

		logger.WithFields(fields).Debug("Request payload")
	}
}

func readRequestBody(c *gin.Context, maxBytes int) string {
	if c.Request.Body == nil {
		return ""
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	// Restore the body for downstream handlers
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return ""
	}
	if len(body) > maxBytes {
		return fmt.Sprintf("[%d bytes, truncated from log]", len(body))
	}
	return string(body)
}
