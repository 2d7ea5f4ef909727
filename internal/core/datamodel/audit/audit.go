package audit

import "time"

// TableName is the single fixed collection audit entries live in.
const TableName = "hipaa_audit_logs"

type AuditLog struct {
	ID           string    `db:"id" gorm:"primaryKey;type:varchar(36)"`
	OccurredAt   time.Time `db:"occurred_at" gorm:"column:occurred_at;not null;index"`
	UserID       string    `db:"user_id" gorm:"column:user_id;not null;index"`
	UserName     string    `db:"user_name" gorm:"column:user_name"`
	Action       string    `db:"action" gorm:"column:action;not null"`
	ResourceType string    `db:"resource_type" gorm:"column:resource_type;not null"`
	ResourceID   string    `db:"resource_id" gorm:"column:resource_id"`
	AccessType   string    `db:"access_type" gorm:"column:access_type;not null"`
	Status       string    `db:"status" gorm:"column:status;not null"`
}

func (AuditLog) TableName() string {
	return TableName
}
