package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/middleware"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/pkg/response"
)

// MeHandler serves the signed-in member's own records.
type MeHandler struct {
	memberService  *services.MemberService
	workoutService *services.WorkoutService
	cal            *services.Calendar
}

func NewMeHandler(members *services.MemberService, workouts *services.WorkoutService, cal *services.Calendar) *MeHandler {
	return &MeHandler{memberService: members, workoutService: workouts, cal: cal}
}

type membershipView struct {
	Member        *models.Member `json:"member"`
	DaysRemaining int            `json:"days_remaining"`
	Expired       bool           `json:"expired"`
}

// GET /api/me/dashboard
func (h *MeHandler) Dashboard(c *gin.Context) {
	dash, err := h.workoutService.Dashboard(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dash)
}

// GET /api/me/membership
func (h *MeHandler) Membership(c *gin.Context) {
	member, err := h.memberService.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, membershipView{
		Member:        member,
		DaysRemaining: services.DaysRemaining(member.EndDate, h.cal.Today()),
		Expired:       member.Status == models.StatusExpired,
	})
}

// UpdateProfile edits the contact number and address only
// PUT /api/me/profile
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, member)
}

// POST /api/me/workouts
func (h *MeHandler) LogWorkout(c *gin.Context) {
	var req services.LogWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	workout, err := h.workoutService.Log(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, workout)
}

// GET /api/me/workouts?limit=20
func (h *MeHandler) ListWorkouts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	workouts, err := h.workoutService.List(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, workouts)
}
