package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nurpe/fleetops-contracts/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) ListActive(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, is_active, is_default
		FROM clients
		WHERE is_active = TRUE
		ORDER BY is_default DESC, name ASC
	`).Scan(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
