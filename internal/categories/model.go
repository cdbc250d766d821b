package categories

import "time"

// Category groups a user's notes.
type Category struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null"`
	Name        string    `gorm:"column:name;size:100;not null"`
	Description string    `gorm:"column:description;size:500"`
	UserID      string    `gorm:"column:user_id;size:36;not null;index:idx_categories_user"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Category) TableName() string {
	return "categories"
}
