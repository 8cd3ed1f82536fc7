package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	article_number TEXT NOT NULL UNIQUE,
	product_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	price REAL,
	tiered_prices TEXT NOT NULL DEFAULT '[]',
	currency TEXT NOT NULL DEFAULT 'EUR',
	image_url TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	ocr_confidence REAL NOT NULL DEFAULT 0,
	source TEXT NOT NULL DEFAULT '',
	published INTEGER NOT NULL DEFAULT 0,
	verified INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS ocr_results (
	id TEXT PRIMARY KEY,
	screenshot_id TEXT NOT NULL,
	status TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// OpenSQLite opens (and bootstraps) the local store. Used when no
// Postgres DSN is configured.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	logger.Info("sqlite store ready", "path", path)
	return db, nil
}

type sqliteProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteProductRepository(db *sql.DB, logger *slog.Logger) ProductRepository {
	return &sqliteProductRepository{db: db, logger: logger}
}

func (r *sqliteProductRepository) FindByArticleNumber(ctx context.Context, articleNumber string) (*entity.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE article_number = ?`, articleNumber)
	p, err := scanSQLiteProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return p, err
}

func (r *sqliteProductRepository) Create(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	tiers, err := json.Marshal(p.TieredPrices)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), p.ArticleNumber, p.ProductName, p.Description, p.Price, string(tiers),
		p.Currency, p.ImageURL, p.ThumbnailURL, p.Category, p.OCRConfidence, p.Source,
		p.Published, p.Verified, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return p, nil
}

func (r *sqliteProductRepository) Update(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	p.UpdatedAt = time.Now().UTC()
	tiers, err := json.Marshal(p.TieredPrices)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET product_name=?, description=?, price=?, tiered_prices=?,
		 currency=?, image_url=?, thumbnail_url=?, category=?, ocr_confidence=?,
		 source=?, published=?, verified=?, updated_at=?
		 WHERE article_number=?`,
		p.ProductName, p.Description, p.Price, string(tiers),
		p.Currency, p.ImageURL, p.ThumbnailURL, p.Category, p.OCRConfidence,
		p.Source, p.Published, p.Verified, p.UpdatedAt, p.ArticleNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (r *sqliteProductRepository) FindMany(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY article_number LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	return scanSQLiteProducts(rows)
}

func (r *sqliteProductRepository) Count(ctx context.Context) (int, error) {
	return r.countWhere(ctx, ``)
}

func (r *sqliteProductRepository) CountWithImages(ctx context.Context) (int, error) {
	return r.countWhere(ctx, `WHERE image_url <> ''`)
}

func (r *sqliteProductRepository) CountVerified(ctx context.Context) (int, error) {
	return r.countWhere(ctx, `WHERE verified`)
}

func (r *sqliteProductRepository) countWhere(ctx context.Context, where string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *sqliteProductRepository) GroupByCategory(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category FROM products WHERE category <> '' GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *sqliteProductRepository) Search(ctx context.Context, query string, limit int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE published AND (article_number LIKE ? COLLATE NOCASE
			OR product_name LIKE ? COLLATE NOCASE
			OR description LIKE ? COLLATE NOCASE)
		 ORDER BY article_number LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	return scanSQLiteProducts(rows)
}

func scanSQLiteProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	var id, tiers string
	err := row.Scan(&id, &p.ArticleNumber, &p.ProductName, &p.Description, &p.Price, &tiers,
		&p.Currency, &p.ImageURL, &p.ThumbnailURL, &p.Category, &p.OCRConfidence, &p.Source,
		&p.Published, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if tiers != "" {
		if err := json.Unmarshal([]byte(tiers), &p.TieredPrices); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func scanSQLiteProducts(rows *sql.Rows) ([]*entity.Product, error) {
	var out []*entity.Product
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type sqliteOCRResultRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteOCRResultRepository(db *sql.DB, logger *slog.Logger) OCRResultRepository {
	return &sqliteOCRResultRepository{db: db, logger: logger}
}

func (r *sqliteOCRResultRepository) Save(ctx context.Context, res *entity.OCRResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ocr_results (id, screenshot_id, status, payload, created_at)
		 VALUES (?,?,?,?,?)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, payload = excluded.payload`,
		res.ID.String(), res.ScreenshotID.String(), string(res.Status), string(payload), res.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *sqliteOCRResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.OCRResult, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM ocr_results WHERE id = ?`, id.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	var res entity.OCRResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
