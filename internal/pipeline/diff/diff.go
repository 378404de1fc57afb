// Package diff сравнивает staged-записи запуска с каноническим каталогом поставщика.
package diff

import (
	"sort"
	"strings"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/google/uuid"
)

// Имена признаков конфликта.
const (
	ConflictDuplicateStaged    = "duplicate-staged-identity"
	ConflictAmbiguousCanonical = "ambiguous-canonical-match"
)

// WarningRestored помечает изменение, возвращающее архивный товар.
const WarningRestored = "archived product reappeared"

// group — все записи с одним нормализованным идентификатором.
type group struct {
	id        string
	staged    []domain.StagedPart
	canonical []domain.CanonicalProduct
}

type conflictCheck struct {
	name string
	test func(g *group) bool
}

// conflictChecks — ситуации, в которых автоматическое сопоставление небезопасно.
var conflictChecks = []conflictCheck{
	{ConflictDuplicateStaged, duplicateStaged},
	{ConflictAmbiguousCanonical, ambiguousCanonical},
}

// Options управляют генерацией идентификаторов и времени, в тестах подменяются.
type Options struct {
	NewID func() string
	Now   func() time.Time
}

// NormalizeID — ключ сопоставления staged-записи и SKU каталога.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Compute строит диффы запуска runID. Порядок результата: порядок staged-записей, затем удаления по SKU.
// Удаления формируются только для режима, перечисляющего весь каталог, и только если есть валидные записи.
// canonical включает архивные товары: они не удаляются повторно и восстанавливаются при появлении.
func Compute(runID string, staged []domain.StagedPart, canonical []domain.CanonicalProduct, mode domain.RunMode, opts Options) []domain.ImportDiff {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now().UTC()

	byID := make(map[string]*group)
	var order []*group

	for _, part := range staged {
		if !part.HasValidIdentity() {
			continue
		}
		id := NormalizeID(part.ExternalID)
		g, ok := byID[id]
		if !ok {
			g = &group{id: id}
			byID[id] = g
			order = append(order, g)
		}
		g.staged = append(g.staged, part)
	}

	live := make(map[string]bool)
	for _, cp := range canonical {
		if !cp.Product.IsArchived {
			live[NormalizeID(cp.Product.SKU)] = true
		}
	}

	var orphans []domain.CanonicalProduct
	for _, cp := range canonical {
		id := NormalizeID(cp.Product.SKU)
		if id == "" || (cp.Product.IsArchived && live[id]) {
			continue
		}
		if g, ok := byID[id]; ok {
			g.canonical = append(g.canonical, cp)
			continue
		}
		orphans = append(orphans, cp)
	}

	newDiff := func(externalID string, typ domain.DiffType, before, after *domain.Snapshot) domain.ImportDiff {
		return domain.ImportDiff{
			ID:          opts.NewID(),
			ImportRunID: runID,
			ExternalID:  externalID,
			DiffType:    typ,
			Before:      before,
			After:       after,
			Resolution:  domain.ResolutionUnresolved,
			CreatedAt:   now,
		}
	}

	var diffs []domain.ImportDiff
	for _, g := range order {
		last := g.staged[len(g.staged)-1]

		if reason := conflictReason(g); reason != "" {
			var before *domain.Snapshot
			if len(g.canonical) > 0 {
				before = canonicalSnapshot(g.canonical[0])
			}
			d := newDiff(last.ExternalID, domain.DiffConflict, before, last.Snapshot())
			d.Validation.Conflict = reason
			d.Validation.Warnings = last.Warnings
			diffs = append(diffs, d)
			continue
		}

		part := g.staged[0]
		if len(g.canonical) == 0 {
			d := newDiff(part.ExternalID, domain.DiffAdd, nil, part.Snapshot())
			d.Validation.Warnings = part.Warnings
			diffs = append(diffs, d)
			continue
		}

		// архивный товар, снова появившийся у поставщика, восстанавливается изменением
		// существующего товара во внешнем каталоге, даже если содержимое не менялось
		cp := g.canonical[0]
		if !cp.Product.IsArchived && cp.Latest != nil && cp.Latest.ContentHash == part.ContentHash {
			continue
		}
		after := part.Snapshot()
		after.ProductID = &cp.Product.ID
		after.TargetProductID = cp.Product.TargetProductID
		d := newDiff(part.ExternalID, domain.DiffChange, canonicalSnapshot(cp), after)
		d.Validation.Warnings = part.Warnings
		if cp.Product.IsArchived {
			d.Validation.Warnings = append(d.Validation.Warnings, WarningRestored)
		}
		diffs = append(diffs, d)
	}

	if mode.EnumeratesCatalog() && len(order) > 0 {
		sort.SliceStable(orphans, func(i, j int) bool {
			return orphans[i].Product.SKU < orphans[j].Product.SKU
		})
		for _, cp := range orphans {
			if cp.Product.IsArchived {
				continue
			}
			diffs = append(diffs, newDiff(cp.Product.SKU, domain.DiffDelete, canonicalSnapshot(cp), nil))
		}
	}

	return diffs
}

// conflictReason возвращает сработавшие признаки конфликта через запятую.
func conflictReason(g *group) string {
	var fired []string
	for _, c := range conflictChecks {
		if c.test(g) {
			fired = append(fired, c.name)
		}
	}
	return strings.Join(fired, ",")
}

// duplicateStaged: один идентификатор попал в выгрузку несколько раз с разным содержимым.
func duplicateStaged(g *group) bool {
	for _, p := range g.staged[1:] {
		if p.ContentHash != g.staged[0].ContentHash {
			return true
		}
	}
	return false
}

// ambiguousCanonical: несколько SKU каталога сводятся к одному идентификатору.
func ambiguousCanonical(g *group) bool {
	return len(g.canonical) > 1
}

func canonicalSnapshot(cp domain.CanonicalProduct) *domain.Snapshot {
	p := cp.Product
	s := &domain.Snapshot{
		ExternalID:      p.SKU,
		Title:           p.Title,
		PartType:        p.Type,
		ProductID:       &p.ID,
		TargetProductID: p.TargetProductID,
	}
	if v := cp.Latest; v != nil {
		s.Description = v.Description
		s.Images = v.Images
		s.NormSpecs = v.NormSpecs
		s.PriceMsrp = v.PriceMsrp
		s.PriceWholesale = v.PriceWholesale
		s.Availability = v.Availability
		s.ContentHash = v.ContentHash
		s.VersionID = &v.ID
	}
	return s
}
