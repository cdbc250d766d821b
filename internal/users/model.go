package users

import "time"

// User is the account row backing authentication and resource ownership.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null"`
	Username     string    `gorm:"column:username;size:50;not null;uniqueIndex:idx_users_username"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}
