package database

import "threads/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Users come first so the threads.author_id foreign key has a target.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Thread{},
	}
}
