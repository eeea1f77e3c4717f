// Package access holds the ownership rules applied to file entities.
package access

import "github.com/patric-chuzhbe/filesmanager/internal/models"

// CanManage reports whether userID may change the entity.
func CanManage(userID int64, file *models.File) bool {
	return file != nil && userID != models.Anonymous && file.UserID == userID
}

// CanRead reports whether the caller may read the entity's content.
// A models.Anonymous caller sees public entities only.
func CanRead(callerUserID int64, file *models.File) bool {
	if file == nil {
		return false
	}

	return file.IsPublic || CanManage(callerUserID, file)
}
