package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/associates"
)

var _ associates.Store = (*AssociateStore)(nil)

func newStore(t *testing.T) *AssociateStore {
	t.Helper()
	s, err := NewAssociateStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestResetSeedsExampleRows(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, associates.Associate{DNI: "1", FirstName: "Tmp", LastName: "Row"}))

	require.NoError(t, s.Reset(ctx))
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Gomez", list[0].LastName)
	assert.Equal(t, "Springfield", list[0].City)
	assert.Equal(t, "Perez", list[1].LastName)
	assert.Equal(t, "Calle Falsa 123", list[1].Address)
}

func TestCRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a := associates.Associate{DNI: "30111222", FirstName: "Ana", LastName: "Diaz", Phone: "223"}

	require.NoError(t, s.Save(ctx, a))
	require.ErrorIs(t, s.Save(ctx, a), associates.ErrDuplicate)

	got, err := s.FindByDNI(ctx, "30111222")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	a.City = "Tandil"
	require.NoError(t, s.Update(ctx, a))
	got, err = s.FindByDNI(ctx, "30111222")
	require.NoError(t, err)
	assert.Equal(t, "Tandil", got.City)

	require.ErrorIs(t, s.Update(ctx, associates.Associate{DNI: "9"}), associates.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "30111222"))
	require.ErrorIs(t, s.Delete(ctx, "30111222"), associates.ErrNotFound)
	_, err = s.FindByDNI(ctx, "30111222")
	require.ErrorIs(t, err, associates.ErrNotFound)
}

func TestRegistryOverSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.db")
	s, err := NewAssociateStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx))

	reg := associates.NewRegistry(s, nil, nil)
	require.NoError(t, reg.Load(ctx))
	require.NoError(t, reg.Add(ctx, associates.Associate{DNI: "555", FirstName: "Luis", LastName: "Alvarez"}))
	require.NoError(t, s.Close())

	reopened, err := NewAssociateStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Alvarez", list[0].LastName)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "clinic.db", c.Path)
}
