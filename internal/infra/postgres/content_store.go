package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"winequiz-service/internal/domain"
)

// ContentStore keeps authored session content as JSONB rows.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

func (s *ContentStore) LoadContent(ctx context.Context, sessionID string) (domain.GameContent, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM game_sessions WHERE id=$1`, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameContent{}, domain.ErrContentNotFound
	}
	if err != nil {
		return domain.GameContent{}, fmt.Errorf("load session content: %w", err)
	}
	var content domain.GameContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.GameContent{}, fmt.Errorf("unmarshal session content: %w", err)
	}
	return content, nil
}

func (s *ContentStore) StoreContent(ctx context.Context, content domain.GameContent) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal session content: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_sessions (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		content.SessionID, raw)
	if err != nil {
		return fmt.Errorf("store session content: %w", err)
	}
	return nil
}

func (s *ContentStore) ListContent(ctx context.Context) ([]domain.GameContent, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM game_sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list session content: %w", err)
	}
	defer rows.Close()

	var out []domain.GameContent
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session content: %w", err)
		}
		var content domain.GameContent
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, fmt.Errorf("unmarshal session content: %w", err)
		}
		out = append(out, content)
	}
	return out, rows.Err()
}
