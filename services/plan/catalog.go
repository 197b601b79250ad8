package plan

// Catalog is the immutable set of purchasable plans, fixed at startup.
type Catalog struct {
	plans []Plan
	byID  map[string]Plan
}

func NewCatalog(plans []Plan) *Catalog {
	byID := make(map[string]Plan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}
	return &Catalog{
		plans: append([]Plan(nil), plans...),
		byID:  byID,
	}
}

// ByID looks a plan up by its slug ID.
func (c *Catalog) ByID(id string) (Plan, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// All returns the plans in catalog order. Callers get a copy.
func (c *Catalog) All() []Plan {
	return append([]Plan(nil), c.plans...)
}
