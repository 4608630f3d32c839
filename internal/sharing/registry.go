package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ravikumarch040/StudyAsist/internal/database"
	"github.com/ravikumarch040/StudyAsist/internal/identifier"
	"github.com/ravikumarch040/StudyAsist/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// DefaultTTLHours applies when the caller omits an expiry.
	DefaultTTLHours = 24
	// MaxTTLHours caps expires_hours at roughly one hundred years.
	MaxTTLHours = 100 * 365 * 24
	// MaxCodeAttempts bounds regeneration after unique-index collisions.
	MaxCodeAttempts = 8

	opCreate  = "sharing.create"
	opResolve = "sharing.resolve"
)

var (
	// ErrNotFound indicates an unknown share code.
	ErrNotFound = errors.New("sharing: code not found")
	// ErrExpired indicates a share code past its expiry.
	ErrExpired = errors.New("sharing: code expired")
	// ErrInvalidInput indicates a malformed create request.
	ErrInvalidInput = errors.New("sharing: invalid input")

	errMissingDatabase  = errors.New("database handle is required")
	errCodesExhausted   = errors.New("share code attempts exhausted")
	errMalformedPayload = errors.New("assessment data must be a JSON object")
	errTTLTooLarge      = errors.New("expires_hours exceeds the supported maximum")
)

// RegistryConfig describes the dependencies of the share code registry.
type RegistryConfig struct {
	Database      *gorm.DB
	CodeGenerator CodeGenerator
	IDProvider    identifier.Provider
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Registry issues share codes for assessment snapshots and resolves them.
type Registry struct {
	db         *gorm.DB
	codes      CodeGenerator
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	OwnerID string
	Title   string
	Data    json.RawMessage
	// TTLHours nil selects DefaultTTLHours; a non-positive value never expires.
	TTLHours *int
}

// Issued reports a freshly created share code.
type Issued struct {
	Code      string
	ExpiresAt *time.Time
}

// Snapshot is the resolved content behind a share code.
type Snapshot struct {
	Title string
	Data  json.RawMessage
}

// NewRegistry constructs the share code registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New("sharing.registry.new", "missing_database", errMissingDatabase)
	}
	codes := cfg.CodeGenerator
	if codes == nil {
		codes = NewRandomCodeGenerator()
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
	return &Registry{
		db:         cfg.Database,
		codes:      codes,
		idProvider: idProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Create stores the snapshot under a fresh code, regenerating on collisions.
func (r *Registry) Create(ctx context.Context, request CreateRequest) (Issued, error) {
	if r.db == nil {
		return Issued{}, serviceerr.New(opCreate, "missing_database", errMissingDatabase)
	}
	title := strings.TrimSpace(request.Title)
	if !isJSONObject(request.Data) {
		return Issued{}, fmt.Errorf("%w: %w", ErrInvalidInput, errMalformedPayload)
	}

	now := r.clock().UTC()
	ttlHours := DefaultTTLHours
	if request.TTLHours != nil {
		ttlHours = *request.TTLHours
	}
	var expiresAt *time.Time
	if ttlHours > MaxTTLHours {
		return Issued{}, fmt.Errorf("%w: %w", ErrInvalidInput, errTTLTooLarge)
	}
	if ttlHours > 0 {
		expiry := now.Add(time.Duration(ttlHours) * time.Hour)
		expiresAt = &expiry
	}

	var ownerID *string
	if owner := strings.TrimSpace(request.OwnerID); owner != "" {
		ownerID = &owner
	}

	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := r.codes.NewCode()
		if err != nil {
			r.logError(opCreate, "code_generation_failed", err)
			return Issued{}, serviceerr.New(opCreate, "code_generation_failed", err)
		}
		id, err := r.idProvider.NewID()
		if err != nil {
			r.logError(opCreate, "id_generation_failed", err)
			return Issued{}, serviceerr.New(opCreate, "id_generation_failed", err)
		}

		record := SharedAssessment{
			ID:             id,
			Code:           NormalizeCode(code),
			OwnerID:        ownerID,
			Title:          title,
			AssessmentData: datatypes.JSON(request.Data),
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
		}
		err = r.db.WithContext(ctx).Create(&record).Error
		if err == nil {
			return Issued{Code: record.Code, ExpiresAt: expiresAt}, nil
		}
		if !database.IsUniqueViolation(err) {
			r.logError(opCreate, "insert_failed", err)
			return Issued{}, serviceerr.New(opCreate, "insert_failed", err)
		}
		r.logger.Debug("share code collision", zap.Int("attempt", attempt))
	}

	r.logError(opCreate, "codes_exhausted", errCodesExhausted, zap.Int("attempts", MaxCodeAttempts))
	return Issued{}, serviceerr.New(opCreate, "codes_exhausted", errCodesExhausted)
}

// Resolve returns the snapshot for code. Lookup is case-insensitive.
func (r *Registry) Resolve(ctx context.Context, code string) (Snapshot, error) {
	if r.db == nil {
		return Snapshot{}, serviceerr.New(opResolve, "missing_database", errMissingDatabase)
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Snapshot{}, ErrNotFound
	}

	var record SharedAssessment
	err := r.db.WithContext(ctx).Where("code = ?", normalized).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		r.logError(opResolve, "query_failed", err)
		return Snapshot{}, serviceerr.New(opResolve, "query_failed", err)
	}
	if record.ExpiredAt(r.clock().UTC()) {
		return Snapshot{}, ErrExpired
	}
	return Snapshot{Title: record.Title, Data: json.RawMessage(record.AssessmentData)}, nil
}

func (r *Registry) logError(operation, reason string, err error, fields ...zap.Field) {
	serviceerr.Log(r.logger, "sharing registry error", operation, reason, err, fields...)
}

func isJSONObject(data json.RawMessage) bool {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return false
	}
	return object != nil
}
