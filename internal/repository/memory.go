package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benfi/label-automation/internal/common"
	"github.com/benfi/label-automation/internal/entity"
)

// MemoryProductRepository is the in-memory store used by tests and
// by callers that need a throwaway backend.
type MemoryProductRepository struct {
	mu       sync.Mutex
	products map[string]*entity.Product // keyed by article number
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]*entity.Product)}
}

func (r *MemoryProductRepository) FindByArticleNumber(_ context.Context, articleNumber string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[articleNumber]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) Create(_ context.Context, p *entity.Product) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.products[p.ArticleNumber]; exists {
		return nil, common.NewAppError("PRODUCT_EXISTS", p.ArticleNumber, common.ErrInvalidInput)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.products[p.ArticleNumber] = &cp
	return p, nil
}

func (r *MemoryProductRepository) Update(_ context.Context, p *entity.Product) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.products[p.ArticleNumber]
	if !ok {
		return nil, common.ErrNotFound
	}
	p.ID = old.ID
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.products[p.ArticleNumber] = &cp
	return p, nil
}

func (r *MemoryProductRepository) FindMany(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	all := r.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryProductRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products), nil
}

func (r *MemoryProductRepository) CountWithImages(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.products {
		if p.ImageURL != "" {
			n++
		}
	}
	return n, nil
}

func (r *MemoryProductRepository) CountVerified(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.products {
		if p.Verified {
			n++
		}
	}
	return n, nil
}

func (r *MemoryProductRepository) GroupByCategory(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var cats []string
	for _, p := range r.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			cats = append(cats, p.Category)
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func (r *MemoryProductRepository) Search(_ context.Context, query string, limit int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	var out []*entity.Product
	for _, p := range r.sorted() {
		if !p.Published {
			continue
		}
		if strings.Contains(strings.ToLower(p.ArticleNumber), q) ||
			strings.Contains(strings.ToLower(p.ProductName), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryProductRepository) sorted() []*entity.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Product, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArticleNumber < out[j].ArticleNumber })
	return out
}

// MemoryOCRResultRepository is the in-memory OCR result store.
type MemoryOCRResultRepository struct {
	mu      sync.Mutex
	results map[uuid.UUID]*entity.OCRResult
}

func NewMemoryOCRResultRepository() *MemoryOCRResultRepository {
	return &MemoryOCRResultRepository{results: make(map[uuid.UUID]*entity.OCRResult)}
}

func (r *MemoryOCRResultRepository) Save(_ context.Context, res *entity.OCRResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *res
	r.results[res.ID] = &cp
	return nil
}

func (r *MemoryOCRResultRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.OCRResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *res
	return &cp, nil
}
