package model

import "time"

// User type tags stored in users.user_type.  Citizens rate and review roads,
// managers register roads and assign responsibility, inspectors verify
// assigned roads, and builders update construction status.
const (
	UserTypeCitizen   = "citizen"
	UserTypeManager   = "manager"
	UserTypeInspector = "inspector"
	UserTypeBuilder   = "builder"
)

// User represents an account record as stored in the `users` table.  The
// json tags are omitted because these structs are used by the repository
// layer; handlers define separate response types with appropriate tags.
//
// Fields:
//
//	ID                 – primary key identifier of the user.
//	Name               – display name.
//	Email              – unique email address.
//	Phone              – optional unique phone number (nil when absent).
//	PasswordHash       – bcrypt hashed password; never serialized.
//	Age                – self-reported age, zero when not provided.
//	UserType           – one of the UserType* constants above.
//	IsVerified         – whether the email address has been confirmed.
//	IsActive           – whether the account may authenticate.
//	TotalContributions – count of ratings and reviews submitted.
//	CreatedAt/UpdatedAt – row timestamps.
type User struct {
	ID                 uint64     // users.id
	Name               string     // users.name
	Email              string     // users.email
	Phone              *string    // users.phone (nullable)
	PasswordHash       string     // users.password_hash
	Age                int        // users.age
	UserType           string     // users.user_type
	IsVerified         bool       // users.is_verified
	IsActive           bool       // users.is_active
	TotalContributions int        // users.total_contributions
	CreatedAt          time.Time  // users.created_at
	UpdatedAt          time.Time  // users.updated_at
}
