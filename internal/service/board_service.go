package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/internal/dto"
	"github.com/prohmpiriya/tenant-auth/internal/repository"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

var ErrBoardNotFound = errors.New("board not found")

// BoardService manages boards. Ownership checks happen in the route guard.
type BoardService interface {
	Create(ctx context.Context, authorID int64, req *dto.CreateBoardRequest) (*domain.Board, error)
	Get(ctx context.Context, id int64) (*domain.Board, error)
	Update(ctx context.Context, id int64, req *dto.UpdateBoardRequest) (*domain.Board, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, keyword string, limit, offset int) ([]*domain.Board, int, error)
}

type boardService struct {
	boards repository.BoardRepository
}

// NewBoardService creates a new BoardService
func NewBoardService(boards repository.BoardRepository) BoardService {
	return &boardService{boards: boards}
}

func (s *boardService) Create(ctx context.Context, authorID int64, req *dto.CreateBoardRequest) (*domain.Board, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.board.create")
	defer span.End()

	span.SetAttributes(attribute.Int64("author_id", authorID))

	board := &domain.Board{AuthorID: authorID, Title: req.Title, Content: req.Content}
	if err := s.boards.Create(ctx, board); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return board, nil
}

func (s *boardService) Get(ctx context.Context, id int64) (*domain.Board, error) {
	board, err := s.boards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}
	return board, nil
}

func (s *boardService) Update(ctx context.Context, id int64, req *dto.UpdateBoardRequest) (*domain.Board, error) {
	board := &domain.Board{ID: id, Title: req.Title, Content: req.Content}
	ok, err := s.boards.Update(ctx, board)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBoardNotFound
	}
	return board, nil
}

func (s *boardService) Delete(ctx context.Context, id int64) error {
	ok, err := s.boards.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBoardNotFound
	}
	return nil
}

func (s *boardService) List(ctx context.Context, keyword string, limit, offset int) ([]*domain.Board, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.board.list")
	defer span.End()

	boards, total, err := s.boards.List(ctx, strings.TrimSpace(keyword), limit, offset)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("total", total))
	return boards, total, nil
}
