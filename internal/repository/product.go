package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
)

// ProductRepository is the persistent product store consumed by the
// merger. Absent rows are reported as common.ErrNotFound.
type ProductRepository interface {
	FindByArticleNumber(ctx context.Context, articleNumber string) (*entity.Product, error)
	Create(ctx context.Context, p *entity.Product) (*entity.Product, error)
	Update(ctx context.Context, p *entity.Product) (*entity.Product, error)
	FindMany(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	Count(ctx context.Context) (int, error)
	CountWithImages(ctx context.Context) (int, error)
	CountVerified(ctx context.Context) (int, error)
	GroupByCategory(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string, limit int) ([]*entity.Product, error)
}

// OCRResultRepository persists recognition outcomes for audit.
type OCRResultRepository interface {
	Save(ctx context.Context, r *entity.OCRResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.OCRResult, error)
}

const productColumns = `id, article_number, product_name, description, price, tiered_prices,
	currency, image_url, thumbnail_url, category, ocr_confidence, source,
	published, verified, created_at, updated_at`

type pgProductRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *slog.Logger) ProductRepository {
	return &pgProductRepository{pool: pool, logger: logger}
}

func (r *pgProductRepository) FindByArticleNumber(ctx context.Context, articleNumber string) (*entity.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE article_number = $1`, articleNumber)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return p, err
}

func (r *pgProductRepository) Create(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	tiers, err := json.Marshal(p.TieredPrices)
	if err != nil {
		return nil, err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.ArticleNumber, p.ProductName, p.Description, p.Price, tiers,
		p.Currency, p.ImageURL, p.ThumbnailURL, p.Category, p.OCRConfidence, p.Source,
		p.Published, p.Verified, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error("product.create.failed", "article_number", p.ArticleNumber, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return p, nil
}

func (r *pgProductRepository) Update(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	p.UpdatedAt = time.Now().UTC()
	tiers, err := json.Marshal(p.TieredPrices)
	if err != nil {
		return nil, err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET product_name=$2, description=$3, price=$4, tiered_prices=$5,
		 currency=$6, image_url=$7, thumbnail_url=$8, category=$9, ocr_confidence=$10,
		 source=$11, published=$12, verified=$13, updated_at=$14
		 WHERE article_number=$1`,
		p.ArticleNumber, p.ProductName, p.Description, p.Price, tiers,
		p.Currency, p.ImageURL, p.ThumbnailURL, p.Category, p.OCRConfidence,
		p.Source, p.Published, p.Verified, p.UpdatedAt)
	if err != nil {
		r.logger.Error("product.update.failed", "article_number", p.ArticleNumber, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (r *pgProductRepository) FindMany(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY article_number LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *pgProductRepository) Count(ctx context.Context) (int, error) {
	return r.countWhere(ctx, ``)
}

func (r *pgProductRepository) CountWithImages(ctx context.Context) (int, error) {
	return r.countWhere(ctx, `WHERE image_url <> ''`)
}

func (r *pgProductRepository) CountVerified(ctx context.Context) (int, error) {
	return r.countWhere(ctx, `WHERE verified`)
}

func (r *pgProductRepository) countWhere(ctx context.Context, where string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *pgProductRepository) GroupByCategory(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
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

func (r *pgProductRepository) Search(ctx context.Context, query string, limit int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE published AND (article_number ILIKE $1 OR product_name ILIKE $1 OR description ILIKE $1)
		 ORDER BY article_number LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	var tiers []byte
	err := row.Scan(&p.ID, &p.ArticleNumber, &p.ProductName, &p.Description, &p.Price, &tiers,
		&p.Currency, &p.ImageURL, &p.ThumbnailURL, &p.Category, &p.OCRConfidence, &p.Source,
		&p.Published, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &p.TieredPrices); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]*entity.Product, error) {
	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
