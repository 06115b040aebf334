package catalog

// Memory is an immutable in-memory catalog.
//
// Listing order is the order records were supplied in. Memory is safe for
// concurrent use because nothing mutates it after construction.
type Memory struct {
	order []string
	byID  map[string]Product
}

// NewMemory builds a catalog from products.
// Returns DuplicateProductError if two products normalize to the same id.
func NewMemory(products ...Product) (*Memory, error) {
	m := &Memory{
		order: make([]string, 0, len(products)),
		byID:  make(map[string]Product, len(products)),
	}
	for _, p := range products {
		p = p.clone()
		p.ID = NormalizeID(p.ID)
		p.Name = normalize(p.Name)
		if _, exists := m.byID[p.ID]; exists {
			return nil, &DuplicateProductError{ProductID: p.ID}
		}
		m.order = append(m.order, p.ID)
		m.byID[p.ID] = p
	}
	return m, nil
}

// MustMemory is like NewMemory but panics on error.
// Intended for tests and static fixtures.
func MustMemory(products ...Product) *Memory {
	m, err := NewMemory(products...)
	if err != nil {
		panic(err)
	}
	return m
}

// Product implements Catalog.
func (m *Memory) Product(id string) (Product, bool) {
	p, ok := m.byID[NormalizeID(id)]
	if !ok {
		return Product{}, false
	}
	return p.clone(), true
}

// Products returns all records in listing order.
func (m *Memory) Products() []Product {
	out := make([]Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id].clone())
	}
	return out
}

// Len returns the number of products.
func (m *Memory) Len() int {
	return len(m.order)
}

// With returns a copy of the catalog with p added or replaced.
// A replaced record keeps its listing position.
func (m *Memory) With(p Product) *Memory {
	p = p.clone()
	p.ID = NormalizeID(p.ID)
	p.Name = normalize(p.Name)

	out := &Memory{
		order: append([]string(nil), m.order...),
		byID:  make(map[string]Product, len(m.byID)+1),
	}
	for id, existing := range m.byID {
		out.byID[id] = existing
	}
	if _, exists := out.byID[p.ID]; !exists {
		out.order = append(out.order, p.ID)
	}
	out.byID[p.ID] = p
	return out
}
