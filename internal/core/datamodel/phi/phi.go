package phi

import "time"

// Record keeps protected fields as encoded tokens only.
type Record struct {
	ID         string            `gorm:"primaryKey;type:varchar(36)"`
	OwnerID    string            `gorm:"column:owner_id;not null;index"`
	Attributes map[string]string `gorm:"column:attributes;type:text;serializer:json"`
	Protected  map[string]string `gorm:"column:protected;type:text;serializer:json"`
	MRNDigest  string            `gorm:"column:mrn_digest;index"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Record) TableName() string {
	return "phi_records"
}
