package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/mihirKIG/Service-Hub-Backend/internal/db"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

type userRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.User]
}

func NewUserRepository(con *mongo.Database, repo *db.Repository[model.User]) UserRepository {
	return &userRepository{
		con:       con,
		mongoRepo: repo,
	}
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("fetch user failed: %w", err)
	}
	return user, nil
}

// ResolveDisplayName maps an identity to the name rendered next to its
// messages.
func (r *userRepository) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.DisplayName(), nil
}
