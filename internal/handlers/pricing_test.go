package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingHandler(t *testing.T) {
	s := newTestServer(t)
	token := adminToken(t)

	w, env := s.do(t, "GET", "/api/pricing", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []map[string]interface{}
	decodeData(t, env, &entries)
	assert.Len(t, entries, 9)

	w, _ = s.do(t, "PUT", "/api/pricing", token, map[string]interface{}{
		"member_type": "Student", "plan_type": "Monthly", "price": "550.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, "PUT", "/api/pricing", token, map[string]interface{}{
		"member_type": "Student", "plan_type": "Weekly", "price": "10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "plan_type", env.Field)

	w, env = s.do(t, "GET", "/api/pricing/history?limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]interface{}
	decodeData(t, env, &history)
	assert.Len(t, history, 1)

	w, _ = s.do(t, "GET", "/api/pricing/history?limit=zero", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
