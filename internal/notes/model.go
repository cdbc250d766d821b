package notes

import "time"

// Note is a user-owned note, optionally filed under a category.
type Note struct {
	ID         string    `gorm:"column:id;primaryKey;size:36;not null"`
	Title      string    `gorm:"column:title;size:255;not null"`
	Content    string    `gorm:"column:content;type:text;not null"`
	UserID     string    `gorm:"column:user_id;size:36;not null;index:idx_notes_user"`
	CategoryID *string   `gorm:"column:category_id;size:36;index:idx_notes_category"`
	IsPublic   bool      `gorm:"column:is_public;not null;default:false"`
	Tags       TagSet    `gorm:"column:tags;type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// SharePermission enumerates the access levels a share can grant.
type SharePermission string

const (
	SharePermissionRead  SharePermission = "read"
	SharePermissionWrite SharePermission = "write"
	SharePermissionAdmin SharePermission = "admin"
)

func (p SharePermission) valid() bool {
	switch p {
	case SharePermissionRead, SharePermissionWrite, SharePermissionAdmin:
		return true
	}
	return false
}

// NoteShare records an access grant from a note's owner to another user.
// Grants are bookkeeping only: no read or write path consults them.
type NoteShare struct {
	ID               string          `gorm:"column:id;primaryKey;size:36;not null"`
	NoteID           string          `gorm:"column:note_id;size:36;not null;index:idx_note_shares_note"`
	SharedWithUserID string          `gorm:"column:shared_with_user_id;size:36;not null;index:idx_note_shares_user"`
	Permission       SharePermission `gorm:"column:permission_level;size:20;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (NoteShare) TableName() string {
	return "note_shares"
}
