package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bognix/dymek-api/internal/domain"
	"github.com/bognix/dymek-api/pkg/util"
)

// UserDirectory resolves notification recipients and stores their push
// registration tokens.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateOrCreateUser(ctx context.Context, userID, registrationToken string) (*domain.User, error)
}

type redisUserDirectory struct {
	client *redis.Client
}

// NewUserDirectory builds a Redis-backed directory. Entries are small hot
// hashes keyed by user id.
func NewUserDirectory(client *redis.Client) UserDirectory {
	return &redisUserDirectory{client: client}
}

func userKey(userID string) string {
	return "user:" + userID
}

func (d *redisUserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, util.NewValidationError("user id required", nil)
	}
	fields, err := d.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, util.NewStoreUnavailable(err)
	}
	if len(fields) == 0 {
		return nil, util.NewNotFound("user", map[string]any{"userId": userID})
	}

	user := &domain.User{
		UserID:            userID,
		RegistrationToken: fields["registrationToken"],
	}
	if raw, ok := fields["updatedAt"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			user.UpdatedAt = ts
		}
	}
	return user, nil
}

func (d *redisUserDirectory) UpdateOrCreateUser(ctx context.Context, userID, registrationToken string) (*domain.User, error) {
	if userID == "" {
		return nil, util.NewValidationError("can not create user without ID", nil)
	}
	now := time.Now().UTC()
	err := d.client.HSet(ctx, userKey(userID),
		"registrationToken", registrationToken,
		"updatedAt", now.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return nil, util.NewStoreUnavailable(err)
	}
	return &domain.User{
		UserID:            userID,
		RegistrationToken: registrationToken,
		UpdatedAt:         now,
	}, nil
}
