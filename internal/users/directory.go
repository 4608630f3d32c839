package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ravikumarch040/StudyAsist/internal/database"
	"github.com/ravikumarch040/StudyAsist/internal/identifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidInput indicates a profile without a usable email.
	ErrInvalidInput = errors.New("users: invalid input")
	// ErrIdentityConflict indicates the email is already linked to a different external subject.
	ErrIdentityConflict = errors.New("users: identity conflict")
	// ErrUserNotFound indicates no user matched the lookup.
	ErrUserNotFound = errors.New("users: user not found")

	errMissingDatabase   = errors.New("users: database connection required")
	errMissingIDProvider = errors.New("users: id provider required")
)

const (
	columnGoogleSubject = "google_id"
	columnAppleSubject  = "apple_id"
	reconcileAttempts   = 2
)

// DirectoryConfig describes the dependencies required for user resolution.
type DirectoryConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Directory maps external identities onto a single internal user record.
type Directory struct {
	db         *gorm.DB
	idProvider identifier.Provider
	now        func() time.Time
	logger     *zap.Logger
}

// NewDirectory constructs the directory.
func NewDirectory(cfg DirectoryConfig) (*Directory, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = identifier.NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		db:         cfg.Database,
		idProvider: idProvider,
		now:        clock,
		logger:     logger,
	}, nil
}

// ResolveOrCreate finds the user owning the profile's email (or, failing that, one of
// its subjects) and backfills missing subjects and the name; otherwise it creates one.
// A supplied subject that differs from the one already linked yields ErrIdentityConflict.
func (d *Directory) ResolveOrCreate(ctx context.Context, profile Profile) (User, error) {
	profile = profile.normalized()
	if profile.Email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	var lastErr error
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		user, err := d.resolveOnce(ctx, profile)
		if err == nil {
			return user, nil
		}
		if !database.IsUniqueViolation(err) {
			return User{}, err
		}
		// A concurrent login created or linked the same identity; re-read and reconcile.
		d.logger.Info("user directory reconciling concurrent write",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		lastErr = err
	}
	return User{}, fmt.Errorf("%w: %v", ErrIdentityConflict, lastErr)
}

func (d *Directory) resolveOnce(ctx context.Context, profile Profile) (User, error) {
	var resolved User
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findExisting(tx, profile)
		if errors.Is(err, ErrUserNotFound) {
			created, createErr := d.create(tx, profile)
			if createErr != nil {
				return createErr
			}
			resolved = created
			return nil
		}
		if err != nil {
			return err
		}

		updated, err := d.backfill(tx, existing, profile)
		if err != nil {
			return err
		}
		resolved = updated
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return resolved, nil
}

// findExisting looks up by email first, then by the supplied subjects.
func findExisting(tx *gorm.DB, profile Profile) (User, error) {
	var user User
	err := tx.Where("email = ?", profile.Email).Take(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, err
	}

	subjects := []struct {
		column string
		value  string
	}{
		{column: columnGoogleSubject, value: profile.GoogleSubject},
		{column: columnAppleSubject, value: profile.AppleSubject},
	}
	for _, subject := range subjects {
		if subject.value == "" {
			continue
		}
		err := tx.Where(subject.column+" = ?", subject.value).Take(&user).Error
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, err
		}
	}
	return User{}, ErrUserNotFound
}

func (d *Directory) create(tx *gorm.DB, profile Profile) (User, error) {
	id, err := d.idProvider.NewID()
	if err != nil {
		return User{}, err
	}
	name := profile.Name
	if name == "" {
		name = EmailLocalPart(profile.Email)
	}
	now := d.now().UTC()
	user := User{
		ID:            id,
		Email:         profile.Email,
		Name:          name,
		GoogleSubject: stringPointer(profile.GoogleSubject),
		AppleSubject:  stringPointer(profile.AppleSubject),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Create(&user).Error; err != nil {
		return User{}, err
	}
	d.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

func (d *Directory) backfill(tx *gorm.DB, user User, profile Profile) (User, error) {
	updates := map[string]interface{}{}

	if err := linkSubject(&user.GoogleSubject, profile.GoogleSubject, columnGoogleSubject, updates); err != nil {
		d.logger.Warn("google subject conflict", zap.String("user_id", user.ID))
		return User{}, err
	}
	if err := linkSubject(&user.AppleSubject, profile.AppleSubject, columnAppleSubject, updates); err != nil {
		d.logger.Warn("apple subject conflict", zap.String("user_id", user.ID))
		return User{}, err
	}
	if profile.Name != "" && profile.Name != user.Name {
		updates["name"] = profile.Name
		user.Name = profile.Name
	}
	if len(updates) == 0 {
		return user, nil
	}

	user.UpdatedAt = d.now().UTC()
	updates["updated_at"] = user.UpdatedAt
	if err := tx.Model(&User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

func linkSubject(current **string, supplied, column string, updates map[string]interface{}) error {
	if supplied == "" {
		return nil
	}
	existing := derefString(*current)
	if existing == "" {
		*current = stringPointer(supplied)
		updates[column] = supplied
		return nil
	}
	if existing != supplied {
		return fmt.Errorf("%w: %s already linked", ErrIdentityConflict, column)
	}
	return nil
}

// FindByID returns the user with the given id.
func (d *Directory) FindByID(ctx context.Context, id string) (User, error) {
	return d.findOne(ctx, "id", normalize(id))
}

// FindByEmail returns the user owning email.
func (d *Directory) FindByEmail(ctx context.Context, email string) (User, error) {
	return d.findOne(ctx, "email", normalizeEmail(email))
}

// FindByAppleSubject returns the user linked to the Apple subject.
func (d *Directory) FindByAppleSubject(ctx context.Context, subject string) (User, error) {
	return d.findOne(ctx, columnAppleSubject, normalize(subject))
}

// FindByGoogleSubject returns the user linked to the Google subject.
func (d *Directory) FindByGoogleSubject(ctx context.Context, subject string) (User, error) {
	return d.findOne(ctx, columnGoogleSubject, normalize(subject))
}

func (d *Directory) findOne(ctx context.Context, column, value string) (User, error) {
	if value == "" {
		return User{}, ErrUserNotFound
	}
	var user User
	err := d.db.WithContext(ctx).Where(column+" = ?", value).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}
