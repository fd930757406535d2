// Package cache puts a Redis read-through cache in front of the product store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mercadito-api/models"
	"mercadito-api/store"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var errMiss = errors.New("cache miss")

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisKV struct {
	client *redis.Client
}

func (r redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMiss
	}
	return b, err
}

func (r redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Products caches FindByID results and drops entries on every write.
// Cache errors are logged and fall through to the wrapped store.
type Products struct {
	store.Products
	kv  kv
	ttl time.Duration
	log logrus.FieldLogger
}

func NewProducts(next store.Products, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Products {
	return &Products{Products: next, kv: redisKV{client: client}, ttl: ttl, log: log}
}

func key(id string) string {
	return "producto:" + id
}

func (p *Products) FindByID(ctx context.Context, id string) (*models.Product, error) {
	if raw, err := p.kv.Get(ctx, key(id)); err == nil {
		var product models.Product
		if err := json.Unmarshal(raw, &product); err == nil {
			return &product, nil
		}
	} else if !errors.Is(err, errMiss) {
		p.log.WithError(err).WithField("producto_id", id).Warn("Cache de productos no disponible")
	}

	product, err := p.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(product); err == nil {
		if err := p.kv.Set(ctx, key(id), raw, p.ttl); err != nil {
			p.log.WithError(err).WithField("producto_id", id).Warn("No se pudo cachear el producto")
		}
	}
	return product, nil
}

func (p *Products) Save(ctx context.Context, product *models.Product) error {
	if err := p.Products.Save(ctx, product); err != nil {
		return err
	}
	p.evict(ctx, product.ID)
	return nil
}

func (p *Products) Delete(ctx context.Context, id string) error {
	if err := p.Products.Delete(ctx, id); err != nil {
		return err
	}
	p.evict(ctx, id)
	return nil
}

func (p *Products) evict(ctx context.Context, id string) {
	if err := p.kv.Del(ctx, key(id)); err != nil {
		p.log.WithError(err).WithField("producto_id", id).Warn("No se pudo invalidar el cache del producto")
	}
}
