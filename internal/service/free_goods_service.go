package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/domain"
	"go.uber.org/zap"
)

// FreeGoodsLineStore is the narrow line persistence surface the reconciler needs
type FreeGoodsLineStore interface {
	ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteLine, error)
	CreateBatch(ctx context.Context, lines []domain.QuoteLine) error
	Update(ctx context.Context, line *domain.QuoteLine) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
}

// FreeGoodsCatalog supplies the shared synthetic product carried by generated lines
type FreeGoodsCatalog interface {
	EnsureFreeGoodsProduct(ctx context.Context) (*domain.Product, error)
}

// FreeGoodsService keeps reconciler-generated free-goods lines in sync with
// the paid lines of a quote. Reconciliation is idempotent: running it twice
// with no intervening change is a no-op. It never fails for business-rule
// reasons; malformed generated lines are corrected by deletion.
type FreeGoodsService struct {
	lines        FreeGoodsLineStore
	catalog      FreeGoodsCatalog
	qtyPrecision float64
	logger       *zap.Logger
}

func NewFreeGoodsService(lines FreeGoodsLineStore, catalog FreeGoodsCatalog, qtyPrecision float64, logger *zap.Logger) *FreeGoodsService {
	return &FreeGoodsService{
		lines:        lines,
		catalog:      catalog,
		qtyPrecision: qtyPrecision,
		logger:       logger,
	}
}

// Reconcile synchronizes the quote's generated free-goods lines with its
// current paid lines and the free tiers of their supports
func (s *FreeGoodsService) Reconcile(ctx context.Context, quoteID uuid.UUID) error {
	lines, err := s.lines.ListByQuote(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("failed to load quote lines: %w", err)
	}

	freeProductID := uuid.Nil
	if mayGenerate(lines) {
		product, err := s.catalog.EnsureFreeGoodsProduct(ctx)
		if err != nil {
			return fmt.Errorf("failed to ensure free goods product: %w", err)
		}
		freeProductID = product.ID
	}

	plan := buildReconcilePlan(lines, freeProductID, s.qtyPrecision)

	if len(plan.deletes) > 0 {
		if err := s.lines.DeleteBatch(ctx, plan.deletes); err != nil {
			return fmt.Errorf("failed to delete stale free goods lines: %w", err)
		}
	}
	for i := range plan.updates {
		if err := s.lines.Update(ctx, &plan.updates[i]); err != nil {
			return fmt.Errorf("failed to update free goods line: %w", err)
		}
	}
	if len(plan.creates) > 0 {
		for i := range plan.creates {
			plan.creates[i].QuoteID = quoteID
		}
		if err := s.lines.CreateBatch(ctx, plan.creates); err != nil {
			return fmt.Errorf("failed to create free goods lines: %w", err)
		}
	}

	if len(plan.creates) > 0 || len(plan.updates) > 0 || len(plan.deletes) > 0 {
		s.logger.Debug("free goods reconciled",
			zap.String("quoteID", quoteID.String()),
			zap.Int("created", len(plan.creates)),
			zap.Int("updated", len(plan.updates)),
			zap.Int("deleted", len(plan.deletes)),
		)
	}

	return nil
}

// mayGenerate reports whether any paid line could unlock a free tier, so the
// synthetic product lookup is skipped for quotes that never need it
func mayGenerate(lines []domain.QuoteLine) bool {
	for i := range lines {
		l := &lines[i]
		if !l.Kind.IsGenerated() && l.Support != nil && len(l.Support.FreeTiers) > 0 {
			return true
		}
	}
	return false
}

type reconcilePlan struct {
	creates []domain.QuoteLine
	updates []domain.QuoteLine
	deletes []uuid.UUID
}

type bucketKey struct {
	supportID uuid.UUID
	label     string
}

type desiredBucket struct {
	quantity  float64
	unit      string
	supportID uuid.UUID
	generator *domain.QuoteLine
}

// buildReconcilePlan computes the create/update/delete set that brings the
// quote's generated free lines in line with the desired buckets. Pure: it
// touches no storage, so it can be tested against literal line sets.
//
// Desired buckets come from grouping paid lines by support, picking the tier
// with the greatest min_qty not exceeding the group's summed quantity, and
// flooring orderedQty x rate per (product, unit) bucket to the configured
// precision. Buckets flooring to zero produce no line.
func buildReconcilePlan(lines []domain.QuoteLine, freeProductID uuid.UUID, qtyPrecision float64) reconcilePlan {
	var plan reconcilePlan

	// Index existing generated lines by (support, label). Orphans with no
	// support and duplicate keys are deleted outright.
	existing := make(map[bucketKey]*domain.QuoteLine)
	for i := range lines {
		l := &lines[i]
		if !l.Kind.IsGenerated() {
			continue
		}
		if l.SupportID == nil {
			plan.deletes = append(plan.deletes, l.ID)
			continue
		}
		key := bucketKey{supportID: *l.SupportID, label: l.Description}
		if _, dup := existing[key]; dup {
			plan.deletes = append(plan.deletes, l.ID)
			continue
		}
		existing[key] = l
	}

	desired := computeDesiredBuckets(lines, qtyPrecision)

	// Match existing generated lines against desired buckets
	matched := make(map[bucketKey]bool)
	var keys []bucketKey
	for key := range existing {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].supportID != keys[j].supportID {
			return keys[i].supportID.String() < keys[j].supportID.String()
		}
		return keys[i].label < keys[j].label
	})

	for _, key := range keys {
		line := existing[key]
		want, ok := desired[key]
		if !ok {
			plan.deletes = append(plan.deletes, line.ID)
			continue
		}
		matched[key] = true
		changed := false
		if line.Quantity != want.quantity {
			line.Quantity = want.quantity
			changed = true
		}
		if line.GeneratorID == nil || *line.GeneratorID != want.generator.ID {
			genID := want.generator.ID
			line.GeneratorID = &genID
			changed = true
		}
		if changed {
			plan.updates = append(plan.updates, *line)
		}
	}

	// Create missing buckets, placed right after their generator line
	var missing []bucketKey
	for key := range desired {
		if !matched[key] {
			missing = append(missing, key)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return desired[missing[i]].generator.Sequence < desired[missing[j]].generator.Sequence
	})

	if len(missing) > 0 {
		seq := newSequencer(lines, plan.deletes)
		for _, key := range missing {
			want := desired[key]
			genID := want.generator.ID
			supportID := want.supportID
			line := domain.QuoteLine{
				ProductID:   freeProductID,
				Description: key.label,
				Quantity:    want.quantity,
				Unit:        want.unit,
				UnitPrice:   0,
				UnitCost:    0,
				SupportID:   &supportID,
				Kind:        domain.LineKindFreeGoods,
				GeneratorID: &genID,
			}
			line.Sequence = seq.place(want.generator.Sequence + 1)
			plan.creates = append(plan.creates, line)
		}
		plan.updates = seq.mergeShifts(plan.updates)
	}

	return plan
}

// computeDesiredBuckets derives the wanted free-goods buckets from paid lines
func computeDesiredBuckets(lines []domain.QuoteLine, qtyPrecision float64) map[bucketKey]desiredBucket {
	type group struct {
		support *domain.VendorSupport
		lines   []*domain.QuoteLine
	}

	groups := make(map[uuid.UUID]*group)
	var order []uuid.UUID
	for i := range lines {
		l := &lines[i]
		if l.Kind.IsGenerated() || l.SupportID == nil || l.Support == nil {
			continue
		}
		g, ok := groups[*l.SupportID]
		if !ok {
			g = &group{support: l.Support}
			groups[*l.SupportID] = g
			order = append(order, *l.SupportID)
		}
		g.lines = append(g.lines, l)
	}

	desired := make(map[bucketKey]desiredBucket)
	for _, supportID := range order {
		g := groups[supportID]

		totalQty := 0.0
		for _, l := range g.lines {
			totalQty += l.Quantity
		}

		tier := g.support.ApplicableFreeTier(totalQty)
		if tier == nil || tier.FreePercent <= 0 {
			continue
		}
		rate := tier.FreePercent / 100

		// Bucket by (product, unit), generator is the earliest source line
		type bucket struct {
			qty       float64
			generator *domain.QuoteLine
			label     string
			unit      string
		}
		buckets := make(map[string]*bucket)
		var bucketOrder []string
		for _, l := range g.lines {
			id := l.ProductID.String() + "/" + l.Unit
			b, ok := buckets[id]
			if !ok {
				b = &bucket{
					generator: l,
					label:     freeGoodsLabel(l, tier.FreePercent),
					unit:      l.Unit,
				}
				buckets[id] = b
				bucketOrder = append(bucketOrder, id)
			}
			b.qty += l.Quantity
			if l.Sequence < b.generator.Sequence {
				b.generator = l
			}
		}

		for _, id := range bucketOrder {
			b := buckets[id]
			freeQty := FloorTo(b.qty*rate, qtyPrecision)
			if freeQty <= 0 {
				continue
			}
			key := bucketKey{supportID: supportID, label: b.label}
			desired[key] = desiredBucket{
				quantity:  freeQty,
				unit:      b.unit,
				supportID: supportID,
				generator: b.generator,
			}
		}
	}

	return desired
}

// freeGoodsLabel builds the stable label a generated line is keyed by
func freeGoodsLabel(source *domain.QuoteLine, freePercent float64) string {
	name := source.Description
	if source.Product != nil {
		if source.Product.Code != "" {
			name = source.Product.Code
		} else {
			name = source.Product.Name
		}
	}
	return fmt.Sprintf("Free goods %s (%s) %g%%", name, source.Unit, freePercent)
}

// sequencer assigns sequence slots to created lines, shifting later lines by
// one only when the wanted slot is already taken
type sequencer struct {
	surviving []*domain.QuoteLine
	shifted   map[uuid.UUID]*domain.QuoteLine
	taken     map[int]bool
}

func newSequencer(lines []domain.QuoteLine, deletes []uuid.UUID) *sequencer {
	deleted := make(map[uuid.UUID]bool, len(deletes))
	for _, id := range deletes {
		deleted[id] = true
	}

	s := &sequencer{
		shifted: make(map[uuid.UUID]*domain.QuoteLine),
		taken:   make(map[int]bool),
	}
	for i := range lines {
		l := &lines[i]
		if deleted[l.ID] {
			continue
		}
		s.surviving = append(s.surviving, l)
		s.taken[l.Sequence] = true
	}
	return s
}

// place claims the wanted slot, shifting surviving lines at or past it when occupied
func (s *sequencer) place(want int) int {
	if s.taken[want] {
		for _, l := range s.surviving {
			if l.Sequence >= want {
				delete(s.taken, l.Sequence)
				l.Sequence++
				s.taken[l.Sequence] = true
				s.shifted[l.ID] = l
			}
		}
	}
	s.taken[want] = true
	return want
}

// mergeShifts folds sequence shifts into the update set, keeping one entry per line
func (s *sequencer) mergeShifts(updates []domain.QuoteLine) []domain.QuoteLine {
	inUpdates := make(map[uuid.UUID]int, len(updates))
	for i := range updates {
		inUpdates[updates[i].ID] = i
	}
	for id, line := range s.shifted {
		if i, ok := inUpdates[id]; ok {
			updates[i].Sequence = line.Sequence
		} else {
			updates = append(updates, *line)
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Sequence < updates[j].Sequence })
	return updates
}
