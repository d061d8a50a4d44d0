package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
)

const maxAuditBody = 2000

var sensitiveField = regexp.MustCompile(`(?i)("(?:password|confirm_password|token|secret)"\s*:\s*)"(?:[^"\\]|\\.)*"`)

// AuditLog records administrator write operations (POST/PUT/DELETE) in the
// application log, with password fields masked.
func AuditLog() gin.HandlerFunc {
	audit := logger.Component("Audit")
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(string(raw))
			if len(body) > maxAuditBody {
				body = body[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		resource, action := parseRouteInfo(c.FullPath(), method)

		event := audit.Info()
		if status >= http.StatusBadRequest {
			event = audit.Warn()
		}
		event.
			Str("request_id", c.GetString(logger.RequestIDKey)).
			Uint("admin_id", GetUserID(c)).
			Str("admin", GetUsername(c)).
			Str("resource", resource).
			Str("action", action).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("body", body).
			Msg(formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status))
	}
}

// parseRouteInfo extracts resource and action from a Gin route pattern.
// e.g. "/api/members/:id" + "PUT" → resource="members", action="Update"
func parseRouteInfo(fullPath, method string) (resource, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	resource = strings.SplitN(path, "/", 2)[0]
	if resource == "" {
		resource = "unknown"
	}

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}
	return resource, action
}

func formatAuditMessage(username, method, path string, status int) string {
	outcome := "OK"
	if status < 200 || status >= 300 {
		outcome = "Failed"
	}
	return "[Audit] " + username + " " + method + " " + path + " -> " + outcome
}

// maskSensitiveFields replaces every credential value in a JSON body.
func maskSensitiveFields(body string) string {
	return sensitiveField.ReplaceAllString(body, `$1"***"`)
}
