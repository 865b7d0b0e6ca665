package domain

// Role values carried in auth claims. Anything other than "admin" is treated
// as a regular user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the identity record for people tasks get assigned to. The identity
// provider may know the account under a different username than the email,
// hence ProviderUsername. Timestamps are epoch milliseconds.
type User struct {
	UserID           string
	Email            string
	Username         string
	ProviderUsername string
	FirstName        string
	LastName         string
	PasswordHash     string
	IsAdmin          bool
	CreatedAt        int64
	UpdatedAt        int64
}

// Role reports the claims role string for this user.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}
