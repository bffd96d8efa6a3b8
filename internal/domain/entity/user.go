package entity

import "time"

// Role drives authorization decisions in the guard middleware.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	// RoleGuide is reserved for the upcoming guide dashboard; no route
	// grants it anything beyond RoleUser yet.
	RoleGuide Role = "guide"
)

// AuthProvider records which method last established or linked the account.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// User is the aggregate root for the identity domain.
//
// Invariants:
//   - Email and Username are globally unique; Email is stored lowercased
//     and every lookup lowercases its argument.
//   - A user has at least one authentication method: PasswordHash != ""
//     or GoogleID != nil. Linking a Google identity preserves an existing
//     password hash.
//   - GoogleID, when set, is unique across users.
//   - ResetTokenHash/ResetTokenExpiry are set only while a password reset
//     is outstanding and are cleared together on redemption.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // empty when the account was created via Google and never set a password
	GoogleID     *string
	AuthProvider AuthProvider
	Role         Role
	AvatarURL    string

	ResetTokenHash   string
	ResetTokenExpiry *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// HasPassword reports whether local password login is possible.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }
