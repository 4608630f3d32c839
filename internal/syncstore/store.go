// Package syncstore keeps append-only per-user snapshots and serves the newest one.
package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ravikumarch040/StudyAsist/internal/identifier"
	"github.com/ravikumarch040/StudyAsist/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultVersion is stored when the client does not send a version.
const DefaultVersion int64 = 1

const (
	opUpload   = "sync.upload"
	opDownload = "sync.download"
)

var (
	// ErrInvalidPayload indicates an upload whose payload is not a JSON object.
	ErrInvalidPayload = errors.New("syncstore: payload must be a JSON object")

	errMissingDatabase = errors.New("database handle is required")
	errMissingUserID   = errors.New("user identifier is required")
)

var emptySnapshot = json.RawMessage(`{}`)

// Config describes the dependencies of the sync store.
type Config struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Store appends sync payloads. The newest row per user is the current state.
type Store struct {
	db         *gorm.DB
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
}

// Snapshot is the current synced state of a user.
type Snapshot struct {
	Payload json.RawMessage
	Version int64
}

// NewStore constructs the sync store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New("sync.store.new", "missing_database", errMissingDatabase)
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
	return &Store{db: cfg.Database, idProvider: idProvider, clock: clock, logger: logger}, nil
}

// Upload appends payload for userID. A nil version stores DefaultVersion.
func (s *Store) Upload(ctx context.Context, userID string, payload json.RawMessage, version *int64) (string, error) {
	if s.db == nil {
		return "", serviceerr.New(opUpload, "missing_database", errMissingDatabase)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", serviceerr.New(opUpload, "missing_user_id", errMissingUserID)
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(payload, &object); err != nil || object == nil {
		return "", ErrInvalidPayload
	}

	storedVersion := DefaultVersion
	if version != nil {
		storedVersion = *version
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opUpload, "id_generation_failed", err, zap.String("user_id", userID))
		return "", serviceerr.New(opUpload, "id_generation_failed", err)
	}

	row := Payload{
		ID:        id,
		UserID:    userID,
		Payload:   datatypes.JSON(payload),
		Version:   storedVersion,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opUpload, "insert_failed", err, zap.String("user_id", userID))
		return "", serviceerr.New(opUpload, "insert_failed", err)
	}
	return row.ID, nil
}

// Download returns the newest snapshot for userID, or an empty object at version 0.
func (s *Store) Download(ctx context.Context, userID string) (Snapshot, error) {
	if s.db == nil {
		return Snapshot{}, serviceerr.New(opDownload, "missing_database", errMissingDatabase)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Snapshot{}, serviceerr.New(opDownload, "missing_user_id", errMissingUserID)
	}

	var row Payload
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{Payload: emptySnapshot, Version: 0}, nil
	}
	if err != nil {
		s.logError(opDownload, "query_failed", err, zap.String("user_id", userID))
		return Snapshot{}, serviceerr.New(opDownload, "query_failed", fmt.Errorf("latest payload: %w", err))
	}
	return Snapshot{Payload: json.RawMessage(row.Payload), Version: row.Version}, nil
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	serviceerr.Log(s.logger, "sync store error", operation, reason, err, fields...)
}
