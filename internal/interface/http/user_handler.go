package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-firestore-crud/internal/application"
	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
	"github.com/oksasatya/go-firestore-crud/pkg/response"
	"github.com/oksasatya/go-firestore-crud/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type userRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,max=254"`
	Age   int    `json:"age" binding:"required"`
}

type batchRequest struct {
	Users []userRequest `json:"users" binding:"required,min=1,dive"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,max=254"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(u *entity.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Age: u.Age, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func toResponses(users []*entity.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	return out
}

// fail maps the error kind onto a status: validation 400, not found 404, everything else 500.
func (h *UserHandler) fail(c *gin.Context, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		response.Error[any](c, http.StatusBadRequest, errs.Message(err), nil)
	case errs.KindNotFound:
		response.Error[any](c, http.StatusNotFound, errs.Message(err), nil)
	default:
		helpers.LogError(h.Logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		})
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

func badPayload(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}

func queryInt(c *gin.Context, key string) (int, bool) {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "query parameter '"+key+"' must be an integer", nil)
		return 0, false
	}
	return v, true
}

func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), req.Name, req.Email, req.Age)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toResponse(u), "user created", nil)
}

func (h *UserHandler) CreateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	inputs := make([]userapp.UserInput, 0, len(req.Users))
	for _, u := range req.Users {
		inputs = append(inputs, userapp.UserInput{Name: u.Name, Email: u.Email, Age: u.Age})
	}
	users, err := h.Svc.CreateUsers(c.Request.Context(), inputs)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toResponses(users), "users created", map[string]any{"count": len(users)})
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.GetAllUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponses(users), "users", map[string]any{"count": len(users)})
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u), "user", nil)
}

func (h *UserHandler) GetByEmail(c *gin.Context) {
	u, err := h.Svc.GetUserByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u), "user", nil)
}

func (h *UserHandler) AgeRange(c *gin.Context) {
	minAge, ok := queryInt(c, "min")
	if !ok {
		return
	}
	maxAge, ok := queryInt(c, "max")
	if !ok {
		return
	}
	users, err := h.Svc.GetUsersByAgeRange(c.Request.Context(), minAge, maxAge)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponses(users), "users", map[string]any{"count": len(users)})
}

// Search uses the full-text index when configured; the name scan answers misses and failures.
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponses(users), "users", map[string]any{"count": len(users)})
}

func (h *UserHandler) Stats(c *gin.Context) {
	st, err := h.Svc.GetUserStatistics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, st, "user statistics", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	ok, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), req.Name, req.Email, req.Age)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"modified": ok}, "user updated", nil)
}

func (h *UserHandler) UpdateEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	ok, err := h.Svc.UpdateUserEmail(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"modified": ok}, "user email updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	ok, err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": ok}, "user deleted", nil)
}

// DeleteByAgeRange requires confirm=true; anything else is rejected by the service.
func (h *UserHandler) DeleteByAgeRange(c *gin.Context) {
	minAge, ok := queryInt(c, "min")
	if !ok {
		return
	}
	maxAge, ok := queryInt(c, "max")
	if !ok {
		return
	}
	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	n, err := h.Svc.DeleteUsersByAgeRange(c.Request.Context(), minAge, maxAge, confirm)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": n}, "users deleted", nil)
}

func (h *UserHandler) Export(c *gin.Context) {
	url, err := h.Svc.ExportUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"url": url}, "users exported", nil)
}
