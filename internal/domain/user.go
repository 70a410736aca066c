package domain

import "time"

// User is the external directory entry referenced by markers. The core only
// reads it to resolve push-notification recipients.
type User struct {
	UserID            string    `json:"userId"`
	RegistrationToken string    `json:"registrationToken"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
