package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/civica-dev/accounts/domain"
	apperrors "github.com/civica-dev/accounts/errors"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

// AccountRepository implements domain.AccountRepository over MongoDB.
type AccountRepository struct {
	db       *mongo.Database
	accounts *mongo.Collection
	codes    domain.ConfirmationCodeIssuer
}

// NewAccountRepository creates a new AccountRepository and ensures its
// indexes. Email and provider user id uniqueness are enforced here, at the
// store, so concurrent registrations cannot race past the application-level
// pre-check.
func NewAccountRepository(ctx context.Context, db *mongo.Database, codes domain.ConfirmationCodeIssuer) (*AccountRepository, error) {
	repo := &AccountRepository{
		db:       db,
		accounts: db.Collection(AccountsCollection),
		codes:    codes,
	}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create account indexes (might be due to existing compatible indexes)")
	}
	return repo, nil
}

func (r *AccountRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}), // Case-insensitive unique email
		},
		{
			Keys:    bson.D{{Key: "provider_user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true), // Unique only when present
		},
		{
			Keys:    bson.D{{Key: "confirmation_code", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "serialized_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := r.accounts.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		log.Warn().Err(err).Msg("Error creating indexes for accounts collection (may already exist or options conflict)")
		return fmt.Errorf("failed to create indexes for accounts collection: %w", err)
	}
	log.Info().Msg("Indexes for accounts collection ensured.")
	return nil
}

// validateProfileFields checks the fields shared by local registration and
// federated upsert.
func validateProfileFields(firstName, lastName, email string) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(firstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(lastName) == "" {
		fields["last_name"] = "last name is required"
	}
	switch {
	case strings.TrimSpace(email) == "":
		fields["email"] = "email is required"
	case !emailPattern.MatchString(email):
		fields["email"] = "email format is not valid"
	}
	return fields
}

// CreateLocal validates and inserts a new local account. The account starts
// unconfirmed and inactive, holding a fresh confirmation code.
func (r *AccountRepository) CreateLocal(ctx context.Context, in domain.NewLocalAccount) (*domain.Account, error) {
	fields := validateProfileFields(in.FirstName, in.LastName, in.Email)
	if in.PasswordHash == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	// Fast-path duplicate check for a friendly error; the unique index is
	// what actually enforces uniqueness under concurrency.
	count, err := r.accounts.CountDocuments(ctx, bson.M{"email": in.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return nil, apperrors.NewFieldError("email", "email already exists")
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:               bson.NewObjectID().Hex(),
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		DisplayName:      in.FirstName + " " + in.LastName,
		Email:            in.Email,
		PasswordHash:     in.PasswordHash,
		Confirmed:        false,
		Active:           false,
		ConfirmationCode: r.codes.Issue(),
		LastModifiedAt:   now,
	}

	if _, err := r.accounts.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.NewFieldError("email", "email already exists")
		}
		log.Error().Err(err).Str("email", in.Email).Msg("Error creating account in MongoDB")
		return nil, err
	}
	return account, nil
}

// UpsertByEmail matches by email and overwrites the mutable profile and
// provider fields, inserting when no account exists. Federated accounts come
// out confirmed and active. The same shape checks as CreateLocal run here.
func (r *AccountRepository) UpsertByEmail(ctx context.Context, profile domain.FederatedProfile, serializedID int64) (*domain.Account, error) {
	fields := validateProfileFields(profile.FirstName, profile.LastName, profile.Email)
	if profile.Provider == "" {
		fields["provider"] = "provider is required"
	}
	if profile.ProviderUserID == "" {
		fields["provider_user_id"] = "provider user id is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	now := time.Now().UTC()
	displayName := profile.DisplayName
	if displayName == "" {
		displayName = profile.FirstName + " " + profile.LastName
	}

	update := bson.M{
		"$set": bson.M{
			"first_name":       profile.FirstName,
			"last_name":        profile.LastName,
			"display_name":     displayName,
			"email":            profile.Email,
			"provider":         profile.Provider,
			"provider_user_id": profile.ProviderUserID,
			"picture_url":      profile.PictureURL,
			"serialized_id":    serializedID,
			"confirmed":        true,
			"active":           true,
			"last_modified_at": now,
		},
		"$setOnInsert": bson.M{
			"_id": bson.NewObjectID().Hex(),
		},
	}

	result, err := r.accounts.UpdateOne(ctx, bson.M{"email": profile.Email}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// provider_user_id already bound to a different email
			return nil, apperrors.NewFieldError("provider_user_id", "provider identity is already linked to another account")
		}
		log.Error().Err(err).Str("email", profile.Email).Msg("Error upserting account in MongoDB")
		return nil, err
	}
	log.Debug().
		Int64("matched", result.MatchedCount).
		Int64("modified", result.ModifiedCount).
		Int64("upserted", result.UpsertedCount).
		Msg("account upsert completed")

	return r.GetByEmail(ctx, profile.Email)
}

// GetByID retrieves an account by its id, validating the id shape before
// querying.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if !objectIDPattern.MatchString(id) {
		return nil, apperrors.NewFieldError("id", "id is not valid")
	}
	var account domain.Account
	err := r.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("Error getting account by ID from MongoDB")
		return nil, err
	}
	return &account, nil
}

// GetByEmail retrieves an account by its email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("Error getting account by email from MongoDB")
		return nil, err
	}
	return &account, nil
}

// GetBySerializedID retrieves an account by its numeric session key.
func (r *AccountRepository) GetBySerializedID(ctx context.Context, serializedID int64) (*domain.Account, error) {
	if serializedID <= 0 {
		return nil, apperrors.NewFieldError("serialized_id", "serialized id must be a positive number")
	}
	var account domain.Account
	err := r.accounts.FindOne(ctx, bson.M{"serialized_id": serializedID}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		log.Error().Err(err).Int64("serialized_id", serializedID).Msg("Error getting account by serialized ID from MongoDB")
		return nil, err
	}
	return &account, nil
}

// MarkConfirmed finds the account holding the confirmation code, appends the
// event and activates the account. The event log only ever grows.
func (r *AccountRepository) MarkConfirmed(ctx context.Context, code, detail, origin string) (*domain.Account, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"confirmed":        true,
			"active":           true,
			"last_modified_at": now,
		},
		"$push": bson.M{
			"events": domain.AccountEvent{At: now, Detail: detail, Origin: origin},
		},
	}

	var account domain.Account
	err := r.accounts.FindOneAndUpdate(
		ctx,
		bson.M{"confirmation_code": code},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		log.Error().Err(err).Msg("Error confirming account in MongoDB")
		return nil, err
	}
	return &account, nil
}

// UpdateLastLogin stamps a successful login on the account.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string) error {
	result, err := r.accounts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_login_at": time.Now().UTC()},
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error updating last login in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListAccounts retrieves a paginated list of accounts. pageToken is used as a
// skip offset; the returned token is the next offset, empty on the last page.
func (r *AccountRepository) ListAccounts(ctx context.Context, pageToken string, pageSize int) ([]*domain.Account, string, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	skip := int64(0)
	if pageToken != "" {
		parsedSkip, err := strconv.ParseInt(pageToken, 10, 64)
		if err == nil && parsedSkip > 0 {
			skip = parsedSkip
		} else if err != nil {
			log.Warn().Err(err).Str("pageToken", pageToken).Msg("Invalid pageToken, using default skip 0")
		}
	}

	findOptions := options.Find().
		SetSkip(skip).
		SetLimit(int64(pageSize)).
		SetSort(bson.D{{Key: "last_modified_at", Value: -1}})

	cursor, err := r.accounts.Find(ctx, bson.M{"first_name": bson.M{"$ne": nil}}, findOptions)
	if err != nil {
		log.Error().Err(err).Msg("Error listing accounts from MongoDB")
		return nil, "", err
	}
	defer cursor.Close(ctx)

	var accounts []*domain.Account
	if err = cursor.All(ctx, &accounts); err != nil {
		log.Error().Err(err).Msg("Error decoding listed accounts from MongoDB")
		return nil, "", err
	}

	nextPageToken := ""
	if len(accounts) == pageSize {
		nextPageToken = strconv.FormatInt(skip+int64(pageSize), 10)
	}

	return accounts, nextPageToken, nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
