package users

import "time"

// User is a signed-in identity. Guests never get a row.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	GivenName   string    `json:"givenName"`
	FamilyName  string    `json:"familyName"`
	PictureURL  string    `json:"pictureUrl"`
	LastLoginAt time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
