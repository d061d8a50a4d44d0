package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memberView struct {
	ID         uint   `json:"id"`
	UniqueCode string `json:"unique_code"`
	Status     string `json:"status"`
	Address    string `json:"address"`
}

func createMember(t *testing.T, s *testServer, token string, body map[string]interface{}) memberView {
	t.Helper()
	w, env := s.do(t, "POST", "/api/members", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		Member memberView `json:"member"`
	}
	decodeData(t, env, &reg)
	return reg.Member
}

func TestMemberHandler_CRUD(t *testing.T) {
	s := newTestServer(t)
	token := adminToken(t)

	m := createMember(t, s, token, map[string]interface{}{
		"first_name":     "Carla",
		"last_name":      "Santos",
		"member_type":    "Student",
		"student_number": "2022-00001",
		"gym_plan":       "Monthly",
	})
	assert.Equal(t, "STU-0001", m.UniqueCode)
	assert.Equal(t, "Active", m.Status)

	path := fmt.Sprintf("/api/members/%d", m.ID)
	w, env := s.do(t, "GET", path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got memberView
	decodeData(t, env, &got)
	assert.Equal(t, m.UniqueCode, got.UniqueCode)

	w, env = s.do(t, "PUT", path, token, map[string]string{"address": "Dumaguete"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, env, &got)
	assert.Equal(t, "Dumaguete", got.Address)

	w, env = s.do(t, "PUT", path, token, map[string]string{"status": "Paused"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", env.Field)

	w, env = s.do(t, "GET", "/api/members?search=Carla", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int64        `json:"total"`
		Items []memberView `json:"items"`
	}
	decodeData(t, env, &list)
	assert.Equal(t, int64(1), list.Total)

	w, _ = s.do(t, "DELETE", path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, "GET", path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, env.Code)
}

func TestMemberHandler_Validation(t *testing.T) {
	s := newTestServer(t)
	token := adminToken(t)

	w, _ := s.do(t, "POST", "/api/members", token, map[string]interface{}{"first_name": "No"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, "POST", "/api/members", token, map[string]interface{}{
		"first_name":  "Dan",
		"last_name":   "Lim",
		"member_type": "Alumni",
		"gym_plan":    "Monthly",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "member_type", env.Field)

	w, _ = s.do(t, "GET", "/api/members/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemberHandler_Sweep(t *testing.T) {
	s := newTestServer(t)
	token := adminToken(t)

	createMember(t, s, token, map[string]interface{}{
		"first_name":  "Eve",
		"last_name":   "Tan",
		"member_type": "Outsider",
		"gym_plan":    "Daily",
		"start_date":  "2024-06-01",
		"end_date":    "2024-06-02",
	})

	w, env := s.do(t, "POST", "/api/members/sweep", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Expired int `json:"expired"`
	}
	decodeData(t, env, &result)
	assert.Equal(t, 1, result.Expired)
}

func TestAdminRoutes_RejectMembers(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, "GET", "/api/members", memberToken(t, 1), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, "GET", "/api/members", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, "GET", "/api/me/dashboard", adminToken(t), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
