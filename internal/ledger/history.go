package ledger

import (
	"fmt"

	"herbtrace/internal/model"
)

// GetHistory returns the most recent operations, ordered newest first.
func (s *Service) GetHistory(limit int) ([]*model.Operation, error) {
	ops, err := s.store.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
