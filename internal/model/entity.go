package model

import (
	"time"
)

// User account. Authentication lives in an external service; this table only
// mirrors the identity the rest of the app references.
type User struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email      string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Nickname   string  `gorm:"type:varchar(100);not null" json:"nickname"`
	ProfileImg *string `gorm:"type:text" json:"profile_img,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Projects []ProjectMember `gorm:"foreignKey:UserID" json:"projects,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Project is the tenant unit: one design surface plus its membership. The
// canvas document is stored as an opaque jsonb blob; its shape is owned by
// the canvas model, not by the database layer.
type Project struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID   string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	OwnerID    int64      `gorm:"not null" json:"owner_id"`
	Name       string     `gorm:"type:varchar(200);not null" json:"name"`
	CanvasData *string    `gorm:"type:jsonb" json:"canvas_data,omitempty"`
	Version    int64      `gorm:"default:0" json:"version"`
	LastSaved  *time.Time `json:"last_saved,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Owner   User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMember project membership
type ProjectMember struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID int64     `gorm:"not null;index:idx_project_user" json:"project_id"`
	UserID    int64     `gorm:"not null;index:idx_project_user" json:"user_id"`
	Role      string    `gorm:"type:varchar(20);default:'EDITOR'" json:"role"`
	Status    string    `gorm:"type:varchar(20);default:'ACTIVE'" json:"status"` // PENDING, ACTIVE
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}
