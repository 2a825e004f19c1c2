// Package catalog holds the reference data that drives the pipeline:
// artifact types with their ranks and tag formats, lifecycle phases,
// states, and the transition graph. It is loaded once at startup and
// read-only afterwards, so lookups need no locking.
package catalog

import (
	"sort"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/parser"
	"github.com/specfoundry/specfoundry/pkg/storage"
)

// Catalog is an in-memory index over seeded reference data.
type Catalog struct {
	phases       []storage.LifecyclePhase
	types        []storage.ArtifactType
	states       []storage.ArtifactState
	typesByID    map[int64]storage.ArtifactType
	typesByName  map[string]storage.ArtifactType
	typesBySlug  map[string]storage.ArtifactType
	statesByID   map[int64]storage.ArtifactState
	statesByName map[string]storage.ArtifactState
}

// Load reads reference data from the store and builds the indexes.
func Load(store *storage.Store) (*Catalog, error) {
	phases, err := store.ListPhases()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading lifecycle phases")
	}
	types, err := store.ListArtifactTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading artifact types")
	}
	states, err := store.ListStates()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading artifact states")
	}

	c := &Catalog{
		phases:       phases,
		types:        types,
		states:       states,
		typesByID:    make(map[int64]storage.ArtifactType, len(types)),
		typesByName:  make(map[string]storage.ArtifactType, len(types)),
		typesBySlug:  make(map[string]storage.ArtifactType, len(types)),
		statesByID:   make(map[int64]storage.ArtifactState, len(states)),
		statesByName: make(map[string]storage.ArtifactState, len(states)),
	}
	for _, t := range types {
		c.typesByID[t.ID] = t
		c.typesByName[t.Name] = t
		c.typesBySlug[t.Slug] = t
	}
	for _, st := range states {
		c.statesByID[st.ID] = st
		c.statesByName[st.Name] = st
	}
	return c, nil
}

// Phases returns lifecycle phases in pipeline order.
func (c *Catalog) Phases() []storage.LifecyclePhase {
	return c.phases
}

// Types returns all artifact types in rank order.
func (c *Catalog) Types() []storage.ArtifactType {
	return c.types
}

// States returns all artifact states.
func (c *Catalog) States() []storage.ArtifactState {
	return c.states
}

// TypesByPhase returns the types belonging to one phase, rank order.
func (c *Catalog) TypesByPhase(phaseID int64) []storage.ArtifactType {
	var out []storage.ArtifactType
	for _, t := range c.types {
		if t.LifecyclePhaseID == phaseID {
			out = append(out, t)
		}
	}
	return out
}

// TypeByID looks up an artifact type by primary key.
func (c *Catalog) TypeByID(id int64) (storage.ArtifactType, error) {
	t, ok := c.typesByID[id]
	if !ok {
		return storage.ArtifactType{}, errors.Newf(errors.ErrCodeInvalidArtifactType, "unknown artifact type id %d", id)
	}
	return t, nil
}

// TypeByName looks up an artifact type by display name.
func (c *Catalog) TypeByName(name string) (storage.ArtifactType, error) {
	t, ok := c.typesByName[name]
	if !ok {
		return storage.ArtifactType{}, errors.Newf(errors.ErrCodeInvalidArtifactType, "unknown artifact type %q", name)
	}
	return t, nil
}

// TypeBySlug looks up an artifact type by URL slug.
func (c *Catalog) TypeBySlug(slug string) (storage.ArtifactType, error) {
	t, ok := c.typesBySlug[slug]
	if !ok {
		return storage.ArtifactType{}, errors.Newf(errors.ErrCodeInvalidArtifactType, "unknown artifact type slug %q", slug)
	}
	return t, nil
}

// TagFormat returns the output tag format for a type.
func (c *Catalog) TagFormat(typeID int64) (parser.TagFormat, error) {
	t, err := c.TypeByID(typeID)
	if err != nil {
		return parser.TagFormat{}, err
	}
	return t.Format, nil
}

// StateByID looks up a state by primary key.
func (c *Catalog) StateByID(id int64) (storage.ArtifactState, error) {
	st, ok := c.statesByID[id]
	if !ok {
		return storage.ArtifactState{}, errors.Newf(errors.ErrCodeNotFound, "unknown state id %d", id)
	}
	return st, nil
}

// StateByName looks up a state by display name.
func (c *Catalog) StateByName(name string) (storage.ArtifactState, error) {
	st, ok := c.statesByName[name]
	if !ok {
		return storage.ArtifactState{}, errors.Newf(errors.ErrCodeNotFound, "unknown state %q", name)
	}
	return st, nil
}

// DependencyTypes returns the types a given type depends on, ordered by
// rank ascending.
func (c *Catalog) DependencyTypes(typeID int64) ([]storage.ArtifactType, error) {
	t, err := c.TypeByID(typeID)
	if err != nil {
		return nil, err
	}
	deps := make([]storage.ArtifactType, 0, len(t.DependencyTypeIDs))
	for _, depID := range t.DependencyTypeIDs {
		dep, ok := c.typesByID[depID]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidArtifactType, "dangling dependency type id %d", depID)
		}
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Rank < deps[j].Rank })
	return deps, nil
}
