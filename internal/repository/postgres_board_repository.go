package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

const boardColumns = `id, author_id, title, content, created_at, updated_at`

// PostgresBoardRepository implements BoardRepository using PostgreSQL
type PostgresBoardRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBoardRepository creates a new PostgresBoardRepository
func NewPostgresBoardRepository(pool *pgxpool.Pool) *PostgresBoardRepository {
	return &PostgresBoardRepository{pool: pool}
}

func (r *PostgresBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	query := `
		INSERT INTO boards (author_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, board.AuthorID, board.Title, board.Content).
		Scan(&board.ID, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}
	return nil
}

func (r *PostgresBoardRepository) GetByID(ctx context.Context, id int64) (*domain.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`
	return scanBoard(r.pool.QueryRow(ctx, query, id))
}

// Update changes title and content; the author never changes
func (r *PostgresBoardRepository) Update(ctx context.Context, board *domain.Board) (bool, error) {
	query := `
		UPDATE boards
		SET title = $2, content = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING author_id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, board.ID, board.Title, board.Content).
		Scan(&board.AuthorID, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update board: %w", err)
	}
	return true, nil
}

func (r *PostgresBoardRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete board: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresBoardRepository) List(ctx context.Context, keyword string, limit, offset int) ([]*domain.Board, int, error) {
	where := ""
	args := []any{}
	if keyword != "" {
		where = ` WHERE title ILIKE $1 OR content ILIKE $1`
		args = append(args, "%"+likeEscaper.Replace(keyword)+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM boards`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count boards: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM boards%s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		boardColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, 0, err
		}
		boards = append(boards, board)
	}
	return boards, total, rows.Err()
}

// likeEscaper makes LIKE wildcards in a search keyword literal
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanBoard(row pgx.Row) (*domain.Board, error) {
	board := &domain.Board{}
	err := row.Scan(
		&board.ID,
		&board.AuthorID,
		&board.Title,
		&board.Content,
		&board.CreatedAt,
		&board.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return board, nil
}
