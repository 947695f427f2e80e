package domain

import "context"

// NewLocalAccount carries the validated input for a local registration.
// The repository derives the display name, stores the password hash produced
// by the caller and generates the confirmation code.
type NewLocalAccount struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// FederatedProfile carries a normalized profile fetched from an external
// identity provider, used to upsert an account keyed by email.
type FederatedProfile struct {
	FirstName      string
	LastName       string
	DisplayName    string
	Email          string
	Provider       string
	ProviderUserID string
	PictureURL     string
}

// AccountRepository is the persistence contract for accounts. Uniqueness of
// email and provider user id is enforced by store-level unique indexes, not
// only by pre-checks.
type AccountRepository interface {
	// CreateLocal inserts a new unconfirmed, inactive account and returns the
	// stored record including its generated confirmation code.
	CreateLocal(ctx context.Context, in NewLocalAccount) (*Account, error)

	// UpsertByEmail creates the account for a federated profile or, when an
	// account with the same email exists, overwrites its profile and provider
	// fields. Exactly one account per email exists afterwards.
	UpsertByEmail(ctx context.Context, profile FederatedProfile, serializedID int64) (*Account, error)

	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetBySerializedID(ctx context.Context, serializedID int64) (*Account, error)

	// MarkConfirmed finds the account holding the given confirmation code,
	// appends an event and flips it to confirmed+active.
	MarkConfirmed(ctx context.Context, code, detail, origin string) (*Account, error)

	// UpdateLastLogin stamps a successful login.
	UpdateLastLogin(ctx context.Context, id string) error

	// ListAccounts returns a page of accounts ordered by last modification.
	ListAccounts(ctx context.Context, pageToken string, pageSize int) ([]*Account, string, error)
}

// NotificationRepository queues notifications for asynchronous delivery.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
}

// ConfirmationCodeIssuer generates the opaque codes assigned at registration
// and structurally validates presented codes before any store lookup.
type ConfirmationCodeIssuer interface {
	Issue() string
	Validate(code string) error
}
