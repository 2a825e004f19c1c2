// Package assembler builds the generation context for an artifact from
// its upstream dependencies. Checkpoint documents below the target's
// rank are mandatory; repeatable document families are collected as
// optional lists.
package assembler

import (
	"github.com/specfoundry/specfoundry/pkg/catalog"
	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/storage"
)

// ContextBundle is the fully resolved input for one generation call.
// Single-document fields hold the content of the earliest checkpoint
// document that has any; list fields hold every earlier sibling of a
// repeatable family and may be empty.
type ContextBundle struct {
	ProjectName string
	TypeName    string
	TypeSlug    string
	IsUpdate    bool
	UserMessage string

	// Present on updates: the artifact being revised.
	CurrentName    string
	CurrentContent string

	Vision                    string
	FunctionalRequirements    string
	NonFunctionalRequirements string
	UseCases                  []string
	C4Context                 string
	C4Container               string
	C4Components              []string
}

// Assembler resolves dependency content for generation calls.
type Assembler struct {
	store   *storage.Store
	catalog *catalog.Catalog
	logger  *logging.Logger
}

// New builds an assembler over the given store and catalog.
func New(store *storage.Store, cat *catalog.Catalog, logger *logging.Logger) *Assembler {
	return &Assembler{store: store, catalog: cat, logger: logger}
}

// Assemble resolves the context bundle for the given artifact. For each
// type ranked below the artifact's type, the earliest artifact with
// content satisfies the dependency; a checkpoint type with no usable
// content fails with MISSING_DEPENDENCY. Repeatable families (at or
// below the artifact's rank) contribute whatever earlier siblings
// exist, including none. Only artifacts created before this one are
// considered, so a document never depends on its successors.
func (a *Assembler) Assemble(artifact *storage.ArtifactDetail, userMessage string, isUpdate bool) (*ContextBundle, error) {
	bundle := &ContextBundle{
		ProjectName: artifact.ProjectName,
		TypeName:    artifact.TypeName,
		TypeSlug:    artifact.TypeSlug,
		IsUpdate:    isUpdate,
		UserMessage: userMessage,
	}
	if isUpdate {
		bundle.CurrentName = artifact.Name
		bundle.CurrentContent = artifact.CurrentContent
	}

	for _, depType := range a.catalog.Types() {
		if !a.contributes(depType, artifact) {
			continue
		}

		candidates, err := a.store.GetArtifactsByType(artifact.ProjectID, depType.ID, artifact.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading dependency artifacts").
				WithContext("dependency_type", depType.Name)
		}

		if depType.Repeatable {
			bundle.setList(depType.Slug, nonEmptyContents(candidates))
			continue
		}

		content, ok := firstWithContent(candidates)
		if !ok {
			a.logger.Warn(logging.CategoryContext, "missing_dependency", "", map[string]any{
				"artifact_id":     artifact.ID,
				"artifact_type":   artifact.TypeName,
				"dependency_type": depType.Name,
			})
			return nil, errors.Newf(errors.ErrCodeMissingDependency,
				"%s requires a %s with content", artifact.TypeName, depType.Name).
				WithContext("dependency_type", depType.Name)
		}
		bundle.setSingle(depType.Slug, content)
	}

	return bundle, nil
}

// contributes reports whether depType feeds the target artifact's
// context. Checkpoints strictly below the target rank always do; the
// target's own type only does when it is repeatable, in which case
// earlier siblings become context.
func (a *Assembler) contributes(depType storage.ArtifactType, artifact *storage.ArtifactDetail) bool {
	if depType.Rank < artifact.TypeRank {
		return true
	}
	return depType.ID == artifact.ArtifactTypeID && depType.Repeatable
}

func firstWithContent(candidates []storage.ArtifactDetail) (string, bool) {
	for _, c := range candidates {
		if c.CurrentContent != "" {
			return c.CurrentContent, true
		}
	}
	return "", false
}

func nonEmptyContents(candidates []storage.ArtifactDetail) []string {
	var out []string
	for _, c := range candidates {
		if c.CurrentContent != "" {
			out = append(out, c.CurrentContent)
		}
	}
	return out
}

func (b *ContextBundle) setSingle(slug, content string) {
	switch slug {
	case "vision":
		b.Vision = content
	case "functional-requirements":
		b.FunctionalRequirements = content
	case "non-functional-requirements":
		b.NonFunctionalRequirements = content
	case "c4-context":
		b.C4Context = content
	case "c4-container":
		b.C4Container = content
	}
}

func (b *ContextBundle) setList(slug string, contents []string) {
	switch slug {
	case "use-cases":
		b.UseCases = contents
	case "c4-component":
		b.C4Components = contents
	}
}
