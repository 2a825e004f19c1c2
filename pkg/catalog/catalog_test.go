package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/storage"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := Load(store)
	require.NoError(t, err)
	return cat
}

func TestLoadIndexesSeedData(t *testing.T) {
	cat := newTestCatalog(t)

	require.Len(t, cat.Types(), 7)
	require.Len(t, cat.Phases(), 2)

	vision, err := cat.TypeByName(storage.TypeVision)
	require.NoError(t, err)
	assert.Equal(t, 1, vision.Rank)
	assert.Equal(t, "[VISION]", vision.Format.StartTag)

	bySlug, err := cat.TypeBySlug("c4-component")
	require.NoError(t, err)
	assert.Equal(t, storage.TypeC4Component, bySlug.Name)
	assert.True(t, bySlug.Repeatable)

	byID, err := cat.TypeByID(vision.ID)
	require.NoError(t, err)
	assert.Equal(t, vision.Name, byID.Name)
}

func TestTypesByPhase(t *testing.T) {
	cat := newTestCatalog(t)

	phases := cat.Phases()
	reqs := cat.TypesByPhase(phases[0].ID)
	design := cat.TypesByPhase(phases[1].ID)

	require.Len(t, reqs, 4)
	require.Len(t, design, 3)
	assert.Equal(t, storage.TypeVision, reqs[0].Name)
	assert.Equal(t, storage.TypeC4Context, design[0].Name)
}

func TestStateLookups(t *testing.T) {
	cat := newTestCatalog(t)

	todo, err := cat.StateByName(storage.StateToDo)
	require.NoError(t, err)
	byID, err := cat.StateByID(todo.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StateToDo, byID.Name)

	_, err = cat.StateByName("Rejected")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestUnknownTypeLookups(t *testing.T) {
	cat := newTestCatalog(t)

	_, err := cat.TypeByName("Sequence Diagram")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArtifactType))
	_, err = cat.TypeBySlug("sequence-diagram")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArtifactType))
	_, err = cat.TypeByID(999)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArtifactType))
}

func TestDependencyTypesOrderedByRank(t *testing.T) {
	cat := newTestCatalog(t)

	c4comp, err := cat.TypeByName(storage.TypeC4Component)
	require.NoError(t, err)

	deps, err := cat.DependencyTypes(c4comp.ID)
	require.NoError(t, err)
	require.Len(t, deps, 6)
	for i := 1; i < len(deps); i++ {
		assert.Less(t, deps[i-1].Rank, deps[i].Rank)
	}
	assert.Equal(t, storage.TypeVision, deps[0].Name)

	vision, err := cat.TypeByName(storage.TypeVision)
	require.NoError(t, err)
	deps, err = cat.DependencyTypes(vision.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)
}
