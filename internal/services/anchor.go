package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

// enqueueAnchorJob records a pending ledger write for the entity inside the
// caller's transaction. The anchoring worker picks it up after commit.
func enqueueAnchorJob(ctx context.Context, tx *gorm.DB, jobRepo repos.AnchorJobRepo, entityType types.AnchorEntity, entityID uuid.UUID) error {
	job := &types.AnchorJob{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.AnchorQueued,
	}
	if err := jobRepo.Create(ctx, tx, job); err != nil {
		return fmt.Errorf("enqueue anchor job: %w", err)
	}
	return nil
}
