package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/internal/dto"
	"github.com/prohmpiriya/tenant-auth/internal/middleware"
	"github.com/prohmpiriya/tenant-auth/internal/service"
	"github.com/prohmpiriya/tenant-auth/pkg/response"
)

// BoardHandler handles board HTTP requests
type BoardHandler struct {
	boardService service.BoardService
}

// NewBoardHandler creates a new BoardHandler
func NewBoardHandler(boardService service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// Create handles board creation; the author is the current principal
// POST /api/boards
func (h *BoardHandler) Create(c *gin.Context) {
	var req dto.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	board, err := h.boardService.Create(c.Request.Context(), p.ID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Created(c, dto.NewBoardResponse(board))
}

// List handles listing boards
// GET /api/boards?keyword=&limit=&offset=
func (h *BoardHandler) List(c *gin.Context) {
	var q dto.BoardListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	q.Normalize()

	boards, total, err := h.boardService.List(c.Request.Context(), q.Keyword, q.Limit, q.Offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]dto.BoardResponse, 0, len(boards))
	for _, b := range boards {
		out = append(out, dto.NewBoardResponse(b))
	}
	response.SuccessWithMeta(c, out, response.PaginationMeta{Limit: q.Limit, Offset: q.Offset, Count: len(out), Total: &total})
}

// Get handles fetching a board
// GET /api/boards/:id
func (h *BoardHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	board, err := h.boardService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, dto.NewBoardResponse(board))
}

// Update handles updating a board
// PUT /api/boards/:id
func (h *BoardHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	board, err := h.boardService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, dto.NewBoardResponse(board))
}

// Delete handles deleting a board
// DELETE /api/boards/:id
func (h *BoardHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.boardService.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Board deleted successfully"})
}

func (h *BoardHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrBoardNotFound) {
		response.NotFound(c, "Board not found")
		return
	}
	_ = c.Error(err)
	response.InternalError(c)
}
