package domain

import "time"

// AccountEvent is a single entry in an account's append-only event log.
type AccountEvent struct {
	At     time.Time `bson:"at" json:"at"`
	Detail string    `bson:"detail" json:"detail"`
	Origin string    `bson:"origin" json:"origin"`
}

// Account represents a registered user of the platform. Accounts are created
// either locally (password + email confirmation) or from a federated OAuth2
// profile, in which case PasswordHash is empty and Provider/ProviderUserID
// identify the external identity.
type Account struct {
	ID               string         `bson:"_id,omitempty" json:"id"`
	FirstName        string         `bson:"first_name" json:"first_name"`
	LastName         string         `bson:"last_name" json:"last_name"`
	DisplayName      string         `bson:"display_name" json:"display_name"`
	Email            string         `bson:"email" json:"email"`
	PasswordHash     string         `bson:"password_hash,omitempty" json:"-"`
	Provider         string         `bson:"provider,omitempty" json:"provider,omitempty"`
	ProviderUserID   string         `bson:"provider_user_id,omitempty" json:"provider_user_id,omitempty"`
	PictureURL       string         `bson:"picture_url,omitempty" json:"picture_url,omitempty"`
	Confirmed        bool           `bson:"confirmed" json:"confirmed"`
	Active           bool           `bson:"active" json:"active"`
	ConfirmationCode string         `bson:"confirmation_code,omitempty" json:"-"`
	SerializedID     int64          `bson:"serialized_id,omitempty" json:"-"`
	LastModifiedAt   time.Time      `bson:"last_modified_at,omitempty" json:"last_modified_at,omitempty"`
	LastLoginAt      *time.Time     `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	Events           []AccountEvent `bson:"events,omitempty" json:"events,omitempty"`
}

// Notification is an outbound message queued for delivery after a successful
// registration. Delivery is fire-and-forget: a failed insert never rolls back
// the account that triggered it.
type Notification struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Channel   string    `bson:"channel" json:"channel"`
	Recipient string    `bson:"recipient" json:"recipient"`
	Body      string    `bson:"body" json:"body"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NotificationChannelEmail is the only delivery channel in use today.
const NotificationChannelEmail = "email"
