package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

type ClientServiceRepository struct {
	col *mongo.Collection
}

func NewClientServiceRepository(db *mongo.Database) *ClientServiceRepository {
	return &ClientServiceRepository{col: db.Collection(collectionClientServices)}
}

// activeAt matches subscriptions without expiry or expiring after now.
func activeAt(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$exists": false}},
		bson.M{"expires_at": nil},
		bson.M{"expires_at": bson.M{"$gt": now.UTC()}},
	}}
}

func (r *ClientServiceRepository) Create(ctx context.Context, cs *domain.ClientService) (*domain.ClientService, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *cs
	doc.ID = newID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert client service: %w", err)
	}
	return &doc, nil
}

func (r *ClientServiceRepository) FindByID(ctx context.Context, id string) (*domain.ClientService, error) {
	return findOne[domain.ClientService](ctx, r.col, bson.M{"_id": id}, domain.ErrClientServiceNotFound)
}

func (r *ClientServiceRepository) FindActive(ctx context.Context, clientID, serviceID string, now time.Time) (*domain.ClientService, error) {
	filter := activeAt(now)
	filter["client_id"] = clientID
	filter["service_id"] = serviceID
	return findOne[domain.ClientService](ctx, r.col, filter, domain.ErrClientServiceNotFound)
}

func (r *ClientServiceRepository) ExistsFor(ctx context.Context, clientID, serviceID string) (bool, error) {
	n, err := count(ctx, r.col, bson.M{"client_id": clientID, "service_id": serviceID})
	return n > 0, err
}

func (r *ClientServiceRepository) ListByClient(ctx context.Context, clientID string) ([]*domain.ClientService, error) {
	opts := options.Find().SetSort(bson.D{{Key: "connected_at", Value: 1}})
	return findAll[domain.ClientService](ctx, r.col, bson.M{"client_id": clientID}, opts)
}

func (r *ClientServiceRepository) CountActiveByClient(ctx context.Context, clientID string, now time.Time) (int64, error) {
	filter := activeAt(now)
	filter["client_id"] = clientID
	return count(ctx, r.col, filter)
}

func (r *ClientServiceRepository) CountByClient(ctx context.Context, clientID string) (int64, error) {
	return count(ctx, r.col, bson.M{"client_id": clientID})
}

func (r *ClientServiceRepository) CountByService(ctx context.Context, serviceID string) (int64, error) {
	return count(ctx, r.col, bson.M{"service_id": serviceID})
}

func (r *ClientServiceRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id, domain.ErrClientServiceNotFound)
}

type UserServiceRepository struct {
	col *mongo.Collection
}

func NewUserServiceRepository(db *mongo.Database) *UserServiceRepository {
	return &UserServiceRepository{col: db.Collection(collectionUserServices)}
}

func (r *UserServiceRepository) Create(ctx context.Context, us *domain.UserService) (*domain.UserService, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *us
	doc.ID = newID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("insert user service: %w", err)
	}
	return &doc, nil
}

func (r *UserServiceRepository) FindByID(ctx context.Context, id string) (*domain.UserService, error) {
	return findOne[domain.UserService](ctx, r.col, bson.M{"_id": id}, domain.ErrUserServiceNotFound)
}

func (r *UserServiceRepository) Exists(ctx context.Context, userID, clientServiceID string) (bool, error) {
	n, err := count(ctx, r.col, bson.M{"user_id": userID, "client_service_id": clientServiceID})
	return n > 0, err
}

func (r *UserServiceRepository) ListByUser(ctx context.Context, userID string) ([]*domain.UserService, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}})
	return findAll[domain.UserService](ctx, r.col, bson.M{"user_id": userID}, opts)
}

func (r *UserServiceRepository) CountByClientService(ctx context.Context, clientServiceID string) (int64, error) {
	return count(ctx, r.col, bson.M{"client_service_id": clientServiceID})
}

func (r *UserServiceRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id, domain.ErrUserServiceNotFound)
}

func (r *UserServiceRepository) DeleteByClientService(ctx context.Context, clientServiceID string) (int64, error) {
	return deleteMany(ctx, r.col, bson.M{"client_service_id": clientServiceID})
}

func (r *UserServiceRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return deleteMany(ctx, r.col, bson.M{"user_id": userID})
}

type UsageRepository struct {
	col *mongo.Collection
}

func NewUsageRepository(db *mongo.Database) *UsageRepository {
	return &UsageRepository{col: db.Collection(collectionUsage)}
}

func (r *UsageRepository) Create(ctx context.Context, usage *domain.Usage) (*domain.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *usage
	doc.ID = newID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateReport
		}
		return nil, fmt.Errorf("insert usage: %w", err)
	}
	return &doc, nil
}

// List returns matching usage records ordered by usage date.
func (r *UsageRepository) List(ctx context.Context, f ports.UsageFilter) ([]*domain.Usage, error) {
	filter := bson.M{}
	if f.ClientID != "" {
		filter["client_id"] = f.ClientID
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.ServiceID != "" {
		filter["service_id"] = f.ServiceID
	}
	opts := options.Find().SetSort(bson.D{{Key: "usage_date", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[domain.Usage](ctx, r.col, filter, opts)
}
