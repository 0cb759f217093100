package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile *UserProfile) error

	GetPreferences(ctx context.Context, userID string) (*NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, prefs *NotificationPreferences) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var profile UserProfile
	err := r.db.GetContext(ctx, &profile, "SELECT * FROM user_profiles WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *postgresRepository) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, display_name, phone, language, timezone, created_at, updated_at)
		VALUES (:user_id, :display_name, :phone, :language, :timezone, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			phone = EXCLUDED.phone,
			language = EXCLUDED.language,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, profile)
	return err
}

func (r *postgresRepository) GetPreferences(ctx context.Context, userID string) (*NotificationPreferences, error) {
	var prefs NotificationPreferences
	err := r.db.GetContext(ctx, &prefs, "SELECT * FROM notification_preferences WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *postgresRepository) UpsertPreferences(ctx context.Context, prefs *NotificationPreferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, channels, created_at, updated_at)
		VALUES (:user_id, :channels, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			channels = EXCLUDED.channels,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, prefs)
	return err
}
