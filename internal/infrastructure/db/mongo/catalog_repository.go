package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// insertNamed inserts a document whose name carries a unique index.
func insertNamed(ctx context.Context, col *mongo.Collection, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("insert into %s: %w", col.Name(), err)
	}
	return nil
}

func replaceNamed(ctx context.Context, col *mongo.Collection, id string, doc any, notFound error) error {
	err := replaceByID(ctx, col, id, doc, notFound)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateName
	}
	return err
}

type ClientRepository struct {
	col *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{col: db.Collection(collectionClients)}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	doc := *client
	doc.ID = newID()
	if err := insertNamed(ctx, r.col, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *ClientRepository) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	return findOne[domain.Client](ctx, r.col, bson.M{"_id": id}, domain.ErrClientNotFound)
}

func (r *ClientRepository) FindByName(ctx context.Context, name string) (*domain.Client, error) {
	return findOne[domain.Client](ctx, r.col, bson.M{"name": name}, domain.ErrClientNotFound)
}

func (r *ClientRepository) List(ctx context.Context, page ports.Page) ([]*domain.Client, error) {
	return findAll[domain.Client](ctx, r.col, bson.M{}, pageOptions(page))
}

func (r *ClientRepository) CountByTariff(ctx context.Context, tariffID string) (int64, error) {
	return count(ctx, r.col, bson.M{"tariff_id": tariffID})
}

func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) error {
	return replaceNamed(ctx, r.col, client.ID, client, domain.ErrClientNotFound)
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id, domain.ErrClientNotFound)
}

type ServiceRepository struct {
	col *mongo.Collection
}

func NewServiceRepository(db *mongo.Database) *ServiceRepository {
	return &ServiceRepository{col: db.Collection(collectionServices)}
}

func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) (*domain.Service, error) {
	doc := *svc
	doc.ID = newID()
	if err := insertNamed(ctx, r.col, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *ServiceRepository) FindByID(ctx context.Context, id string) (*domain.Service, error) {
	return findOne[domain.Service](ctx, r.col, bson.M{"_id": id}, domain.ErrServiceNotFound)
}

func (r *ServiceRepository) FindByName(ctx context.Context, name string) (*domain.Service, error) {
	return findOne[domain.Service](ctx, r.col, bson.M{"name": name}, domain.ErrServiceNotFound)
}

func (r *ServiceRepository) List(ctx context.Context, page ports.Page) ([]*domain.Service, error) {
	return findAll[domain.Service](ctx, r.col, bson.M{}, pageOptions(page))
}

func (r *ServiceRepository) Update(ctx context.Context, svc *domain.Service) error {
	return replaceNamed(ctx, r.col, svc.ID, svc, domain.ErrServiceNotFound)
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id, domain.ErrServiceNotFound)
}

type TariffRepository struct {
	col *mongo.Collection
}

func NewTariffRepository(db *mongo.Database) *TariffRepository {
	return &TariffRepository{col: db.Collection(collectionTariffs)}
}

func (r *TariffRepository) Create(ctx context.Context, tariff *domain.Tariff) (*domain.Tariff, error) {
	doc := *tariff
	doc.ID = newID()
	if err := insertNamed(ctx, r.col, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *TariffRepository) FindByID(ctx context.Context, id string) (*domain.Tariff, error) {
	return findOne[domain.Tariff](ctx, r.col, bson.M{"_id": id}, domain.ErrTariffNotFound)
}

func (r *TariffRepository) FindByName(ctx context.Context, name string) (*domain.Tariff, error) {
	return findOne[domain.Tariff](ctx, r.col, bson.M{"name": name}, domain.ErrTariffNotFound)
}

func (r *TariffRepository) List(ctx context.Context, page ports.Page) ([]*domain.Tariff, error) {
	return findAll[domain.Tariff](ctx, r.col, bson.M{}, pageOptions(page))
}

func (r *TariffRepository) Update(ctx context.Context, tariff *domain.Tariff) error {
	return replaceNamed(ctx, r.col, tariff.ID, tariff, domain.ErrTariffNotFound)
}

func (r *TariffRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id, domain.ErrTariffNotFound)
}
