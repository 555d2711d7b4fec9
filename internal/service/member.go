package service

import (
	"canvas-backend/internal/model"

	"gorm.io/gorm"
)

// MemberService project membership queries backing the tenant guard
type MemberService struct {
	db *gorm.DB
}

// NewMemberService creates a MemberService
func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

// IsProjectMember reports whether the user is an active member
func (s *MemberService) IsProjectMember(projectID, userID int64) bool {
	var count int64
	s.db.Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ? AND status = ?", projectID, userID, model.MemberStatusActive.String()).
		Count(&count)
	return count > 0
}

// IsProjectOwner reports whether the user owns the project
func (s *MemberService) IsProjectOwner(projectID, userID int64) bool {
	var ownerID int64
	s.db.Table("projects").Where("id = ?", projectID).Select("owner_id").Scan(&ownerID)
	return ownerID == userID
}

// IsProjectMemberOrOwner member or owner
func (s *MemberService) IsProjectMemberOrOwner(projectID, userID int64) bool {
	return s.IsProjectMember(projectID, userID) || s.IsProjectOwner(projectID, userID)
}
