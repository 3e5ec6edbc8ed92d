package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

const (
	indexUsername = "users_username_unique"
	indexEmail    = "users_email_unique"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *user
	doc.ID = newID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateUserError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &doc, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.M{"_id": id}, domain.ErrUserNotFound)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.M{"username": username}, domain.ErrUserNotFound)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.M{"email": email}, domain.ErrUserNotFound)
}

// List applies the scope filter the service layer derived from the policy.
func (r *UserRepository) List(ctx context.Context, f ports.UserFilter) ([]*domain.User, error) {
	filter := bson.M{}
	if f.ClientID != "" {
		filter["client_id"] = f.ClientID
	}
	if f.UserID != "" {
		filter["_id"] = f.UserID
	}
	return findAll[domain.User](ctx, r.col, filter, pageOptions(f.Page))
}

func (r *UserRepository) CountByClient(ctx context.Context, clientID string) (int64, error) {
	return count(ctx, r.col, bson.M{"client_id": clientID})
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	err := replaceByID(ctx, r.col, user.ID, user, domain.ErrUserNotFound)
	if mongo.IsDuplicateKeyError(err) {
		return duplicateUserError(err)
	}
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id, domain.ErrUserNotFound)
}

func duplicateUserError(err error) error {
	if duplicateIndex(err) == indexEmail {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateUsername
}

// duplicateIndex returns the name of the unique index a duplicate key write
// error collided with, read from the server message
// "E11000 duplicate key error collection: <ns> index: <name> dup key: {...}".
func duplicateIndex(err error) string {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return ""
	}
	for _, e := range we.WriteErrors {
		if e.Code != 11000 {
			continue
		}
		_, rest, ok := strings.Cut(e.Message, "index: ")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, " ")
		return name
	}
	return ""
}
