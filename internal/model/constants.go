package model

// MemberStatus project membership state
type MemberStatus string

const (
	MemberStatusPending MemberStatus = "PENDING"
	MemberStatusActive  MemberStatus = "ACTIVE"
)

func (s MemberStatus) String() string {
	return string(s)
}

// MemberRole project membership role
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleEditor MemberRole = "EDITOR"
	MemberRoleViewer MemberRole = "VIEWER"
)

func (r MemberRole) String() string {
	return string(r)
}
