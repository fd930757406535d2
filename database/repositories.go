package database

import (
	"context"
	"regexp"

	"mercadito-api/models"
	"mercadito-api/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct{ coll *mongo.Collection }

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"email": email})
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, r.coll, bson.M{})
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return insert(ctx, r.coll, u)
}

func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	return replace(ctx, r.coll, u.ID, u, false)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.coll, id)
}

type ProductRepository struct{ coll *mongo.Collection }

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	return findOne[models.Product](ctx, r.coll, bson.M{"_id": id})
}

func (r *ProductRepository) List(ctx context.Context, f store.ProductFilter) ([]models.Product, error) {
	filter := bson.M{}
	if f.Categoria != "" {
		filter["categoria"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Categoria) + "$", "$options": "i"}
	}
	if f.Reportado != nil {
		filter["reportado"] = *f.Reportado
	}
	if f.Query != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"titulo": pattern},
			bson.M{"descripcion": pattern},
		}
	}
	return findAll[models.Product](ctx, r.coll, filter, newestFirst)
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return insert(ctx, r.coll, p)
}

func (r *ProductRepository) Save(ctx context.Context, p *models.Product) error {
	return replace(ctx, r.coll, p.ID, p, false)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.coll, id)
}

type CartRepository struct{ coll *mongo.Collection }

func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	return findOne[models.Cart](ctx, r.coll, bson.M{"usuario_id": userID})
}

func (r *CartRepository) Save(ctx context.Context, c *models.Cart) error {
	return replace(ctx, r.coll, c.ID, c, true)
}

type OrderRepository struct{ coll *mongo.Collection }

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return findOne[models.Order](ctx, r.coll, bson.M{"_id": id})
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	filter := bson.M{}
	if userID != "" {
		filter["usuario_id"] = userID
	}
	return findAll[models.Order](ctx, r.coll, filter, newestFirst)
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return insert(ctx, r.coll, o)
}

func (r *OrderRepository) Save(ctx context.Context, o *models.Order) error {
	return replace(ctx, r.coll, o.ID, o, false)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.coll, id)
}

type PaymentRepository struct{ coll *mongo.Collection }

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return findOne[models.Payment](ctx, r.coll, bson.M{"_id": id})
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	return findAll[models.Payment](ctx, r.coll, bson.M{"usuario_id": userID}, newestFirst)
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return insert(ctx, r.coll, p)
}

func (r *PaymentRepository) Save(ctx context.Context, p *models.Payment) error {
	return replace(ctx, r.coll, p.ID, p, false)
}

// Complete filters on the stored state so two concurrent confirmations
// cannot both succeed.
func (r *PaymentRepository) Complete(ctx context.Context, p *models.Payment) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{
		"_id":    p.ID,
		"estado": bson.M{"$ne": models.PaymentCompleted},
	}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, p.ID); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.coll, id)
}
