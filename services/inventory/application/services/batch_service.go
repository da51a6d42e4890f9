package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// BatchService tracks expiry state on batch receipts. Flagging a batch as
// expired never changes stock; only WriteOff removes quantity, through a
// compensating ledger movement.
type BatchService struct {
	items  repositories.ItemRepository
	ledger repositories.Ledger
}

// NewBatchService returns a BatchService wired with the given repositories.
func NewBatchService(items repositories.ItemRepository, ledger repositories.Ledger) *BatchService {
	return &BatchService{items: items, ledger: ledger}
}

// MarkExpired flags a batch receipt as expired. Stock is untouched.
func (s *BatchService) MarkExpired(ctx context.Context, orgID, performedBy, movementID uuid.UUID, notes string) error {
	if err := s.checkOwnership(ctx, orgID, movementID); err != nil {
		return err
	}
	if err := s.ledger.MarkExpired(ctx, movementID, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

// Reinstate clears the expired flag from a batch receipt.
func (s *BatchService) Reinstate(ctx context.Context, orgID, movementID uuid.UUID) error {
	if err := s.checkOwnership(ctx, orgID, movementID); err != nil {
		return err
	}
	if err := s.ledger.Reinstate(ctx, movementID); err != nil {
		return fmt.Errorf("reinstate: %w", err)
	}
	return nil
}

// WriteOff removes the batch's remaining quantity from stock via a
// compensating write_off movement. The remaining-quantity check and the
// append are one atomic unit, so the same batch cannot be written off twice.
func (s *BatchService) WriteOff(ctx context.Context, orgID, performedBy, movementID uuid.UUID) (*models.Movement, error) {
	if err := s.checkOwnership(ctx, orgID, movementID); err != nil {
		return nil, err
	}

	var mv *models.Movement
	err := withConflictRetry(ctx, func() error {
		var err error
		mv, err = s.ledger.WriteOffBatch(ctx, movementID, performedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// SweepExpired flags every unexpired batch receipt whose expiry date has
// passed. Returns the number of receipts flagged. Driven by the Temporal
// cron workflow.
func (s *BatchService) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	receipts, err := s.ledger.ExpiringReceipts(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list expiring receipts: %w", err)
	}

	flagged := 0
	for _, receipt := range receipts {
		notes := fmt.Sprintf("auto-flagged: batch %s expired %s", receipt.BatchNumber, receipt.ExpiryDate.Format("2006-01-02"))
		if err := s.ledger.MarkExpired(ctx, receipt.ID, notes, asOf); err != nil {
			return flagged, fmt.Errorf("flag receipt %s: %w", receipt.ID, err)
		}
		flagged++
	}
	return flagged, nil
}

// checkOwnership verifies the movement's item belongs to the org.
func (s *BatchService) checkOwnership(ctx context.Context, orgID, movementID uuid.UUID) error {
	mv, err := s.ledger.GetMovement(ctx, movementID)
	if err != nil {
		return fmt.Errorf("get movement: %w", err)
	}
	if _, err := s.items.GetByID(ctx, orgID, mv.ItemID); err != nil {
		return fmt.Errorf("%w: movement %s", domain.ErrMovementNotFound, movementID)
	}
	return nil
}
