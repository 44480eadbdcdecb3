package blog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
	"github.com/angelmondragon/oddsvault-backend/pkg/pagination"
)

// Service manages blog posts. Drafts are only visible through admin calls.
type Service interface {
	ListPublished(ctx context.Context, params pagination.Params) (*ListResult, error)
	ListAll(ctx context.Context, params pagination.Params) (*ListResult, error)
	GetPublished(ctx context.Context, slug string) (*models.BlogPost, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	Create(ctx context.Context, authorID uuid.UUID, req PostRequest) (*models.BlogPost, error)
	Update(ctx context.Context, id uuid.UUID, req PostRequest) (*models.BlogPost, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.BlogPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostRequest creates or replaces a post. An empty slug is derived from the
// title.
type PostRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=200"`
	Excerpt   string `json:"excerpt" validate:"omitempty,max=500"`
	Content   string `json:"content" validate:"required"`
	CoverURL  string `json:"cover_url" validate:"omitempty,url"`
	Published *bool  `json:"published,omitempty"`
}

type ListResult struct {
	Items  []models.BlogPost `json:"items"`
	Cursor string            `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("blog repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) ListPublished(ctx context.Context, params pagination.Params) (*ListResult, error) {
	return s.list(ctx, true, params)
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*ListResult, error) {
	return s.list(ctx, false, params)
}

func (s *service) list(ctx context.Context, publishedOnly bool, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListQuery{PublishedOnly: publishedOnly, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list posts")
	}
	page, next := pagination.Trim(rows, params.Limit, func(p models.BlogPost) pagination.Cursor {
		if publishedOnly && p.PublishedAt != nil {
			return pagination.Cursor{At: *p.PublishedAt, ID: p.ID}
		}
		return pagination.Cursor{At: p.CreatedAt, ID: p.ID}
	})
	return &ListResult{Items: page, Cursor: next}, nil
}

func (s *service) GetPublished(ctx context.Context, slug string) (*models.BlogPost, error) {
	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !post.Published {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return post, nil
}

func (s *service) Create(ctx context.Context, authorID uuid.UUID, req PostRequest) (*models.BlogPost, error) {
	post := &models.BlogPost{AuthorID: authorID}
	if err := s.apply(post, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, conflictOr(err, "create post")
	}
	return post, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req PostRequest) (*models.BlogPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(post, req); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, post); err != nil {
		return nil, conflictOr(err, "update post")
	}
	return post, nil
}

func (s *service) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.BlogPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setPublished(post, published)
	if err := s.repo.Save(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "publish post")
	}
	return post, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete post")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return nil
}

func (s *service) apply(post *models.BlogPost, req PostRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title and content are required")
	}
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from title")
	}
	post.Title = title
	post.Slug = slug
	post.Excerpt = strings.TrimSpace(req.Excerpt)
	post.Content = req.Content
	post.CoverURL = nil
	if cover := strings.TrimSpace(req.CoverURL); cover != "" {
		post.CoverURL = &cover
	}
	if req.Published != nil {
		s.setPublished(post, *req.Published)
	}
	return nil
}

// setPublished stamps PublishedAt on the first publish only.
func (s *service) setPublished(post *models.BlogPost, published bool) {
	post.Published = published
	if published && post.PublishedAt == nil {
		at := s.now().UTC()
		post.PublishedAt = &at
	}
}

// Slugify lowercases value and collapses every run of non-alphanumerics into
// a single hyphen.
func Slugify(value string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func notFoundOr(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load post")
}

func conflictOr(err error, msg string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "post slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
