package plan

// Type identifies a subscription plan tier.
type Type string

const (
	TypeFree     Type = "free"
	TypePro      Type = "pro"
	TypeBusiness Type = "business"
)

// Unlimited is the sentinel generation limit for plans with no quota.
// Callers must branch on IsUnlimited before doing arithmetic with the limit.
const Unlimited int64 = -1

// FeatureFlag names a capability granted by a plan.
type FeatureFlag string

const (
	FeatureBasicTools    FeatureFlag = "basic_tools"
	FeatureAdvancedTools FeatureFlag = "advanced_tools"
	FeatureHistoryExport FeatureFlag = "history_export"
	FeaturePriorityQueue FeatureFlag = "priority_queue"
)

// Definition describes a subscription plan tier.
type Definition struct {
	ID              Type                     `json:"id"`
	Name            string                   `json:"name"`
	GenerationLimit int64                    `json:"generation_limit"` // -1 for unlimited
	Features        map[FeatureFlag]struct{} `json:"-"`
}

// IsUnlimited returns true if the plan has no generation quota.
func (d *Definition) IsUnlimited() bool {
	return d.GenerationLimit == Unlimited
}

// HasFeature returns true if the plan grants the given feature.
func (d *Definition) HasFeature(f FeatureFlag) bool {
	_, ok := d.Features[f]
	return ok
}

// FeatureList returns the plan's features as a sorted-stable slice for display.
func (d *Definition) FeatureList() []string {
	out := make([]string, 0, len(d.Features))
	for _, f := range featureOrder {
		if d.HasFeature(f) {
			out = append(out, string(f))
		}
	}
	return out
}

var featureOrder = []FeatureFlag{
	FeatureBasicTools,
	FeatureAdvancedTools,
	FeatureHistoryExport,
	FeaturePriorityQueue,
}

// Catalog holds the fixed set of plan definitions.
// It is immutable after construction and safe for concurrent reads.
type Catalog struct {
	plans map[Type]*Definition
}

// NewCatalog creates the catalog with the built-in plan set.
func NewCatalog() *Catalog {
	return &Catalog{
		plans: map[Type]*Definition{
			TypeFree: {
				ID:              TypeFree,
				Name:            "Free",
				GenerationLimit: 10,
				Features: map[FeatureFlag]struct{}{
					FeatureBasicTools: {},
				},
			},
			TypePro: {
				ID:              TypePro,
				Name:            "Pro",
				GenerationLimit: 500,
				Features: map[FeatureFlag]struct{}{
					FeatureBasicTools:    {},
					FeatureAdvancedTools: {},
					FeatureHistoryExport: {},
				},
			},
			TypeBusiness: {
				ID:              TypeBusiness,
				Name:            "Business",
				GenerationLimit: Unlimited,
				Features: map[FeatureFlag]struct{}{
					FeatureBasicTools:    {},
					FeatureAdvancedTools: {},
					FeatureHistoryExport: {},
					FeaturePriorityQueue: {},
				},
			},
		},
	}
}

// NewTestCatalog creates a catalog with the given definitions.
// Intended for tests that need non-default limits.
func NewTestCatalog(plans map[Type]*Definition) *Catalog {
	return &Catalog{plans: plans}
}

// Resolve returns the definition for the given plan id.
func (c *Catalog) Resolve(id Type) (*Definition, error) {
	def, ok := c.plans[id]
	if !ok {
		return nil, ErrUnknownPlan
	}
	return def, nil
}

// All returns every plan definition in display order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.plans))
	for _, id := range []Type{TypeFree, TypePro, TypeBusiness} {
		if def, ok := c.plans[id]; ok {
			out = append(out, def)
		}
	}
	return out
}
