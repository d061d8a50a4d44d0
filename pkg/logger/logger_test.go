package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestComponent_TagsEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", &buf)
	defer Init("info")

	l := Component("Sweep")
	l.Info().Int("transitioned", 2).Msg("sweep finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "Sweep" {
		t.Errorf("component = %v, expected %q", entry["component"], "Sweep")
	}
	if entry["service"] != "gymdesk" {
		t.Errorf("service = %v, expected %q", entry["service"], "gymdesk")
	}
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("chatty", &buf)
	defer Init("info")

	Debug().Msg("hidden")
	Info().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug entry should be filtered at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info entry should be written")
	}
}

func TestGinLogger_WritesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	InitWithWriter("info", &buf)
	defer Init("info")

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(RequestIDKey, "req-123")
		c.Next()
	})
	router.Use(GinLogger())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusTeapot, "pong") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("request log should carry request_id, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("4xx responses should log at warn, got %q", buf.String())
	}
}
