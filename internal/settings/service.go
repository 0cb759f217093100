// Package settings stores per-user preferences: profile fields the review
// UI renders with, and which notification channels a user has opted into.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Service interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserProfile, error)

	GetPreferences(ctx context.Context, userID string) (*NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, req UpdatePreferencesRequest) (*NotificationPreferences, error)
}

type settingsService struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settingsService{repo: repo, logger: logger}
}

// GetProfile returns defaults for users who never saved a profile.
func (s *settingsService) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &UserProfile{UserID: userID, Language: "en", Timezone: "UTC"}, nil
	}
	return profile, nil
}

func (s *settingsService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserProfile, error) {
	current, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != "" {
		current.DisplayName = req.DisplayName
	}
	if req.Phone != "" {
		current.Phone = req.Phone
	}
	if req.Language != "" {
		current.Language = req.Language
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, fmt.Errorf("unknown timezone %q", req.Timezone)
		}
		current.Timezone = req.Timezone
	}
	now := time.Now()
	if current.CreatedAt.IsZero() {
		current.CreatedAt = now
	}
	current.UpdatedAt = now

	if err := s.repo.UpsertProfile(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// GetPreferences defaults to in-app delivery only until the user opts in
// to more channels.
func (s *settingsService) GetPreferences(ctx context.Context, userID string) (*NotificationPreferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return &NotificationPreferences{
			UserID:   userID,
			Channels: json.RawMessage(`{"in_app":true,"email":false,"webhook":false}`),
		}, nil
	}
	return prefs, nil
}

func (s *settingsService) UpdatePreferences(ctx context.Context, userID string, req UpdatePreferencesRequest) (*NotificationPreferences, error) {
	channels, err := json.Marshal(req.Channels)
	if err != nil {
		return nil, fmt.Errorf("encoding channels: %w", err)
	}
	now := time.Now()
	prefs := &NotificationPreferences{
		UserID:    userID,
		Channels:  channels,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertPreferences(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}
