package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/internal/dto"
	"github.com/prohmpiriya/tenant-auth/internal/middleware"
	"github.com/prohmpiriya/tenant-auth/internal/service"
	"github.com/prohmpiriya/tenant-auth/pkg/response"
)

// UserHandler handles user HTTP requests
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register handles self-registration
// POST /api/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := dto.ValidatePassword(req.Password); !valid {
		response.BadRequest(c, msg)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Created(c, dto.NewUserResponse(user))
}

// Create handles user creation by an admin
// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := dto.ValidatePassword(req.Password); !valid {
		response.BadRequest(c, msg)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Created(c, dto.NewUserResponse(user))
}

// List handles listing users
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	q.Normalize()

	users, err := h.userService.List(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.NewUserResponse(u))
	}
	response.SuccessWithMeta(c, out, response.PaginationMeta{Limit: q.Limit, Offset: q.Offset, Count: len(out)})
}

// Get handles fetching a user by id
// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// Me returns the current principal's user record
// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)

	user, err := h.userService.Get(c.Request.Context(), p.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// Update handles updating a user
// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Password != "" {
		if valid, msg := dto.ValidatePassword(req.Password); !valid {
			response.BadRequest(c, msg)
			return
		}
	}

	actor, _ := middleware.CurrentPrincipal(c)
	user, err := h.userService.Update(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// Delete handles deleting a user
// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "User not found")
	case errors.Is(err, service.ErrUserAlreadyExists):
		response.Conflict(c, "Username or email already in use")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
