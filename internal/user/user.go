// Package user defines the account model used for authentication and
// short URL ownership.
package user

// User represents a registered account. The password is kept only as a
// salted bcrypt hash; plaintext credentials never reach this struct.
type User struct {
	// ID is the unique identifier of the user, immutable after creation.
	ID string

	// Email is unique across all users, compared case-sensitively.
	Email string

	// PasswordHash is the bcrypt hash of the account credential.
	PasswordHash []byte
}
