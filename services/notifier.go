package services

import (
	"fmt"
	"time"

	"github.com/civica-dev/accounts/domain"
)

// RegistrationNotifier renders the confirmation email queued after a local
// registration.
type RegistrationNotifier struct {
	// ConfirmationBaseURL is the public URL prefix the confirmation code is
	// appended to, e.g. "https://portal.example.com/v1/account/confirm".
	ConfirmationBaseURL string

	// Expiry bounds how long the queued notification is worth delivering.
	Expiry time.Duration
}

func NewRegistrationNotifier(confirmationBaseURL string, expiry time.Duration) *RegistrationNotifier {
	return &RegistrationNotifier{
		ConfirmationBaseURL: confirmationBaseURL,
		Expiry:              expiry,
	}
}

// ConfirmationNotification builds the email asking the registrant to activate
// their account.
func (n *RegistrationNotifier) ConfirmationNotification(account *domain.Account) *domain.Notification {
	link := fmt.Sprintf("%s/%s", n.ConfirmationBaseURL, account.ConfirmationCode)
	body := fmt.Sprintf(
		"Dear %s %s,\n\n"+
			"Your account registration has been processed successfully.\n\n"+
			"To prevent abuse of this site, please activate your account by "+
			"following this link:\n\n%s\n\n"+
			"Thank you for joining us.",
		account.FirstName, account.LastName, link,
	)
	now := time.Now()
	return &domain.Notification{
		Title:     "Your account has been created",
		Channel:   domain.NotificationChannelEmail,
		Recipient: account.Email,
		Body:      body,
		ExpiresAt: now.Add(n.Expiry),
		CreatedAt: now,
	}
}
