package postgres

import (
	"context"
	"errors"

	phiDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/phi"
	"github.com/frahmantamala/client-portal/internal/phi"
	"gorm.io/gorm"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, rec *phiDatamodel.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*phiDatamodel.Record, error) {
	var rec phiDatamodel.Record
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, phi.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RecordRepository) List(ctx context.Context, mrnDigest string) ([]*phiDatamodel.Record, error) {
	var records []*phiDatamodel.Record
	q := r.db.WithContext(ctx).Select("id", "owner_id", "attributes", "mrn_digest", "created_at", "updated_at")
	if mrnDigest != "" {
		q = q.Where("mrn_digest = ?", mrnDigest)
	}
	err := q.Order("created_at DESC").Find(&records).Error
	return records, err
}
