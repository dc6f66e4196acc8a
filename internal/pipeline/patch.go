// Package pipeline – patch application.
package pipeline

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"
)

// ApplyPatch applies a validated patch set to a room's file set, in
// document order. set_file upserts, delete_file removes (deleting an
// absent path is a no-op), mkdir does nothing since directories are
// implicit in paths. Total for well-formed patches: unknown op tags were
// rejected at decode time and are re-checked here for values built in code.
func ApplyPatch(ctx context.Context, db *gorm.DB, roomID string, set domain.PatchSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	for i, op := range set.Ops {
		var err error
		switch op.Op {
		case domain.OpSetFile:
			err = repo.UpsertFile(ctx, db, roomID, op.Path, op.Content)
		case domain.OpDeleteFile:
			err = repo.DeleteFile(ctx, db, roomID, op.Path)
		case domain.OpMkdir:
			// Directories exist only as path prefixes.
		}
		if err != nil {
			return fmt.Errorf("apply ops[%d] %s %s: %w", i, op.Op, op.Path, err)
		}
	}
	return nil
}
