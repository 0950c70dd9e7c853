package database

import "lufeed/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.SharedPost{},
		&models.Comment{},
		&models.Like{},
	}
}
