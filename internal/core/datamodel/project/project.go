package project

import "time"

type Project struct {
	ID          int64         `gorm:"primaryKey"`
	Name        string        `gorm:"column:name;not null"`
	Client      string        `gorm:"column:client;not null"`
	Status      string        `gorm:"column:status;not null;default:Planning"`
	Deadline    time.Time     `gorm:"column:deadline"`
	Description string        `gorm:"column:description"`
	CreatedBy   string        `gorm:"column:created_by"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
	Files       []ProjectFile `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (Project) TableName() string {
	return "projects"
}

type ProjectFile struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	ProjectID  int64     `gorm:"column:project_id;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	MediaType  string    `gorm:"column:media_type"`
	Size       int64     `gorm:"column:size;not null"`
	Sensitive  bool      `gorm:"column:sensitive;default:false"`
	Encoded    bool      `gorm:"column:encoded;default:false"`
	Checksum   string    `gorm:"column:checksum"`
	UploadedBy string    `gorm:"column:uploaded_by"`
	UploadedAt time.Time `gorm:"column:uploaded_at"`
}

func (ProjectFile) TableName() string {
	return "project_files"
}
