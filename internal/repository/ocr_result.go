package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
)

type pgOCRResultRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewOCRResultRepository(pool *pgxpool.Pool, logger *slog.Logger) OCRResultRepository {
	return &pgOCRResultRepository{pool: pool, logger: logger}
}

func (r *pgOCRResultRepository) Save(ctx context.Context, res *entity.OCRResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO ocr_results (id, screenshot_id, status, payload, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload`,
		res.ID, res.ScreenshotID, string(res.Status), payload, res.CreatedAt)
	if err != nil {
		r.logger.Error("ocr_result.save.failed", "result_id", res.ID, "error", err)
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *pgOCRResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.OCRResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM ocr_results WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	var res entity.OCRResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
