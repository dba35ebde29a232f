package schemas

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

func TestRegistry(t *testing.T) {
	list, err := ParseSpider(strings.NewReader(spiderTablesJSON))
	require.NoError(t, err)

	r, err := NewRegistryFrom(list)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"concert_singer"}, r.DBIDs())

	c, err := r.Canonicalizer("concert_singer")
	require.NoError(t, err)
	q, err := c.Canonicalize("SELECT name FROM singer")
	require.NoError(t, err)
	assert.Len(t, q.Select, 1)

	schema, ok := r.Schema("concert_singer")
	require.True(t, ok)
	assert.Equal(t, "concert_singer", schema.DBID)

	_, err = r.Canonicalizer("flight_2")
	assert.ErrorIs(t, err, apperrors.ErrUnknownDatabase)
	_, ok = r.Schema("flight_2")
	assert.False(t, ok)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(nil), apperrors.ErrInvalidSchema)
	assert.ErrorIs(t, r.Register(&models.DatabaseSchema{}), apperrors.ErrInvalidSchema)

	dup := &models.DatabaseSchema{DBID: "x", Tables: []models.SchemaTable{{Name: "t"}, {Name: "T"}}}
	assert.ErrorIs(t, r.Register(dup), apperrors.ErrInvalidSchema)
	assert.Zero(t, r.Len())
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&models.DatabaseSchema{
		DBID:   "x",
		Tables: []models.SchemaTable{{Name: "t", Columns: []models.SchemaColumn{{Name: "a"}}}},
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Canonicalizer("x")
			assert.NoError(t, err)
			_, err = c.Canonicalize("SELECT a FROM t")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
