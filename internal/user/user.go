// Package user defines the user model used throughout the application,
// particularly for authentication and file ownership.
package user

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, assigned by the storage.
	ID int64 `db:"id" json:"id"`

	// Email is unique across all users.
	Email string `db:"email" json:"email"`

	// Password is the hex digest of the user's secret, never the secret itself.
	Password string `db:"password" json:"password"`
}
