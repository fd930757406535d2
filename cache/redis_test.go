package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercadito-api/models"
	"mercadito-api/store"
	"mercadito-api/store/memory"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapKV struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	err  error
}

func (m *mapKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errMiss
	}
	return v, nil
}

func (m *mapKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *mapKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return m.err
}

func newCached(t *testing.T) (*Products, *memory.Store, *mapKV, *test.Hook) {
	t.Helper()
	mem := memory.New()
	require.NoError(t, mem.ProductStore.Create(context.Background(), &models.Product{
		ID: "prod1", Titulo: "Mate", Precio: 10, UsuarioID: "vendedor1",
	}))
	log, hook := test.NewNullLogger()
	m := &mapKV{data: map[string][]byte{}}
	return &Products{Products: mem.ProductStore, kv: m, ttl: time.Minute, log: log}, mem, m, hook
}

func TestFindByIDReadThrough(t *testing.T) {
	p, mem, m, _ := newCached(t)
	ctx := context.Background()

	got, err := p.FindByID(ctx, "prod1")
	require.NoError(t, err)
	assert.Equal(t, "Mate", got.Titulo)
	assert.Contains(t, m.data, "producto:prod1")

	// served from cache even when the store changes underneath
	changed := *got
	changed.Titulo = "Mate cocido"
	require.NoError(t, mem.ProductStore.Save(ctx, &changed))
	got, err = p.FindByID(ctx, "prod1")
	require.NoError(t, err)
	assert.Equal(t, "Mate", got.Titulo)
}

func TestWritesEvict(t *testing.T) {
	p, _, m, _ := newCached(t)
	ctx := context.Background()

	got, err := p.FindByID(ctx, "prod1")
	require.NoError(t, err)

	got.Precio = 12
	require.NoError(t, p.Save(ctx, got))
	assert.NotContains(t, m.data, "producto:prod1")

	again, err := p.FindByID(ctx, "prod1")
	require.NoError(t, err)
	assert.Equal(t, 12.0, again.Precio)

	require.NoError(t, p.Delete(ctx, "prod1"))
	_, err = p.FindByID(ctx, "prod1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCacheErrorsFallThrough(t *testing.T) {
	p, _, m, hook := newCached(t)
	m.err = errors.New("connection refused")

	got, err := p.FindByID(context.Background(), "prod1")
	require.NoError(t, err)
	assert.Equal(t, "Mate", got.Titulo)
	assert.Len(t, hook.AllEntries(), 2)
}
