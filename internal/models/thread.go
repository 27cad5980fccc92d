// Package models contains data structures for the application's domain models.
package models

import "time"

// Thread is a post or a reply. A nil ParentID marks a top-level post.
//
// Children are not stored on the parent: they are every thread whose
// ParentID points at this one, so a reply is visible from its parent as
// soon as the reply row exists.
type Thread struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ParentID *uint     `gorm:"index" json:"parent_id"`
	Children []*Thread `gorm:"foreignKey:ParentID" json:"children"`
	// CommunityID is reserved; communities are not implemented and it is never set.
	CommunityID *uint     `gorm:"index" json:"community_id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Thread) TableName() string {
	return "threads"
}

// IsReply reports whether the thread answers another thread.
func (t *Thread) IsReply() bool {
	return t.ParentID != nil
}
