package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/metaforge/metaforge/pkg/models"
)

// ErrReviewNotFound is returned when resolving an unknown review item.
var ErrReviewNotFound = errors.New("review item not found")

// EnqueueReview records a low-confidence or failed-verification entity for
// a human pass. Enqueueing never blocks the write of the entity itself.
func (s *Store) EnqueueReview(entityType, entityID, reason, details string) (models.ReviewQueueItem, error) {
	item := models.ReviewQueueItem{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Reason:     reason,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := appendJSONL(s.reviewPath(), []models.ReviewQueueItem{item}); err != nil {
		return models.ReviewQueueItem{}, fmt.Errorf("failed to enqueue review item: %w", err)
	}
	return item, nil
}

// ReadReviews returns all review items, deduplicated by id. Resolution is
// an append of the same id with Resolved set, so last-wins dedup folds it.
func (s *Store) ReadReviews() ([]models.ReviewQueueItem, error) {
	return readJSONL[models.ReviewQueueItem](s.reviewPath())
}

// ResolveReview marks a review item resolved by appending an updated copy.
func (s *Store) ResolveReview(id, notes string) error {
	items, err := s.ReadReviews()
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID != id {
			continue
		}
		item.Resolved = true
		item.ResolutionNotes = notes
		return appendJSONL(s.reviewPath(), []models.ReviewQueueItem{item})
	}
	return ErrReviewNotFound
}

func (s *Store) reviewPath() string {
	return filepath.Join(s.normalizedDir(), fileReviews)
}
