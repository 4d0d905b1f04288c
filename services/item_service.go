package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"catalog-api/cache"
	"catalog-api/models"
	"catalog-api/repository"
)

// ItemService applies the catalog rules on top of the repository and keeps
// the cache coherent with writes.
type ItemService struct {
	repo     repository.ItemRepository
	cache    cache.ItemCache
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewItemService(repo repository.ItemRepository, c cache.ItemCache, log *slog.Logger) *ItemService {
	if c == nil {
		c = cache.NopCache{}
	}
	return &ItemService{
		repo:     repo,
		cache:    c,
		validate: newValidator(),
		log:      log,
		now:      time.Now,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *ItemService) Create(ctx context.Context, req models.CreateItemRequest) (*models.Item, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Genre:       req.Genre,
		Year:        req.Year,
		Type:        req.Type,
		FileURL:     req.FileURL,
		ImageURL:    req.ImageURL,
		CreatedAt:   storedTime(s.now()),
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, &StorageError{Op: "create item", Err: err}
	}
	return item, nil
}

// validateCreate treats whitespace-only title, author and fileUrl as
// missing. The request itself is stored as sent.
func (s *ItemService) validateCreate(req models.CreateItemRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.FileURL = strings.TrimSpace(req.FileURL)

	// fileUrl is checked first so a missing file reference is always the
	// reported reason.
	if req.FileURL == "" {
		return &ValidationError{Field: "fileUrl", Message: "fileUrl is required"}
	}

	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate item: %w", err)
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fe.Field() + " is required"
	case "oneof":
		msg = fe.Field() + " must be one of: " + fe.Param()
	case "gte":
		msg = fe.Field() + " must be at least " + fe.Param()
	default:
		msg = fe.Field() + " is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// ListAll returns every item, newest first.
func (s *ItemService) ListAll(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list items", Err: err}
	}
	return items, nil
}

// Search matches query case-insensitively against title, author,
// description and genre. An empty query behaves like ListAll; any other
// query, whitespace included, is matched as given.
func (s *ItemService) Search(ctx context.Context, query string) ([]models.Item, error) {
	if query == "" {
		return s.ListAll(ctx)
	}

	items, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, &StorageError{Op: "search items", Err: err}
	}
	return items, nil
}

func (s *ItemService) Get(ctx context.Context, id string) (*models.Item, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	key := oid.Hex()
	item, ok, err := s.cache.GetItem(ctx, key)
	if err != nil {
		s.log.Warn("cache read failed", "error", err, "id", key)
	}
	if ok {
		return item, nil
	}

	// The generation is read before the store so a Delete that lands in
	// between makes the fill below a no-op.
	gen, genErr := s.cache.Generation(ctx, key)
	if genErr != nil {
		s.log.Warn("cache read failed", "error", genErr, "id", key)
	}

	item, err = s.repo.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get item", Err: err}
	}
	if genErr == nil {
		if _, err := s.cache.SetItem(ctx, item, gen); err != nil {
			s.log.Warn("cache write failed", "error", err, "id", key)
		}
	}
	return item, nil
}

// Delete removes the item if it exists. Deleting an unknown id succeeds.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return &StorageError{Op: "delete item", Err: err}
	}
	if !deleted {
		s.log.Debug("delete of unknown item", "id", oid.Hex())
	}

	if err := s.cache.Invalidate(ctx, oid.Hex()); err != nil {
		s.log.Warn("cache invalidation failed", "error", err, "id", oid.Hex())
	}
	return nil
}

func (s *ItemService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, &ValidationError{Field: "id", Message: "invalid item id"}
	}
	return oid, nil
}

// storedTime rounds t up to the millisecond precision MongoDB keeps, so the
// value returned from Create matches what later reads return and is never
// earlier than t.
func storedTime(t time.Time) time.Time {
	t = t.UTC()
	r := t.Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r
}
