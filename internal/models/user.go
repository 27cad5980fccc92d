package models

import "time"

// User is a profile record keyed by the auth provider's subject id.
type User struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExternalID string `gorm:"uniqueIndex;not null" json:"external_id"`
	// Username is always stored lowercase.
	Username  string `gorm:"uniqueIndex;not null" json:"username"`
	Name      string `gorm:"not null" json:"name"`
	Bio       string `gorm:"type:text" json:"bio"`
	Image     string `json:"image"`
	Onboarded bool   `gorm:"not null;default:false" json:"onboarded"`
	// Threads holds the user's top-level posts in creation order when preloaded.
	Threads   []*Thread `gorm:"foreignKey:AuthorID" json:"threads,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}
