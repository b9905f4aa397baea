package registry

import (
	"fmt"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// Catalog is an immutable, ordered set of selectable models.
type Catalog struct {
	models []types.ModelDescriptor
	byURL  map[string]int
	byID   map[string]int
}

// NewCatalog builds a catalog. IDs and URLs must be non-empty and unique.
func NewCatalog(models ...types.ModelDescriptor) (*Catalog, error) {
	c := &Catalog{
		models: make([]types.ModelDescriptor, 0, len(models)),
		byURL:  make(map[string]int, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for _, m := range models {
		if m.ID == "" || m.URL == "" {
			return nil, fmt.Errorf("catalog entry %q: id and url are required", m.Name)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		if _, dup := c.byURL[m.URL]; dup {
			return nil, fmt.Errorf("duplicate model url %q", m.URL)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		c.byID[m.ID] = len(c.models)
		c.byURL[m.URL] = len(c.models)
		c.models = append(c.models, m)
	}
	return c, nil
}

// Merge returns a catalog of c's models followed by extra's. Entries of
// extra whose id or url already exists are skipped.
func (c *Catalog) Merge(extra ...types.ModelDescriptor) *Catalog {
	out := &Catalog{
		models: append([]types.ModelDescriptor(nil), c.models...),
		byURL:  make(map[string]int, len(c.models)+len(extra)),
		byID:   make(map[string]int, len(c.models)+len(extra)),
	}
	for i, m := range out.models {
		out.byID[m.ID] = i
		out.byURL[m.URL] = i
	}
	for _, m := range extra {
		if m.ID == "" || m.URL == "" {
			continue
		}
		if _, ok := out.byID[m.ID]; ok {
			continue
		}
		if _, ok := out.byURL[m.URL]; ok {
			continue
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		out.byID[m.ID] = len(out.models)
		out.byURL[m.URL] = len(out.models)
		out.models = append(out.models, m)
	}
	return out
}

// Models returns a copy of the catalog in declaration order.
func (c *Catalog) Models() []types.ModelDescriptor {
	return append([]types.ModelDescriptor(nil), c.models...)
}

// Lookup finds a descriptor by url (the model identifier used by commands).
func (c *Catalog) Lookup(url string) (types.ModelDescriptor, bool) {
	i, ok := c.byURL[url]
	if !ok {
		return types.ModelDescriptor{}, false
	}
	return c.models[i], true
}

// LookupID finds a descriptor by id.
func (c *Catalog) LookupID(id string) (types.ModelDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.ModelDescriptor{}, false
	}
	return c.models[i], true
}

// Resolve accepts either a url or an id.
func (c *Catalog) Resolve(ref string) (types.ModelDescriptor, bool) {
	if d, ok := c.Lookup(ref); ok {
		return d, true
	}
	return c.LookupID(ref)
}

// Default returns the first descriptor, if any.
func (c *Catalog) Default() (types.ModelDescriptor, bool) {
	if len(c.models) == 0 {
		return types.ModelDescriptor{}, false
	}
	return c.models[0], true
}

// ExecConfigs returns the execution configuration of every descriptor
// that declares a dtype. Descriptors without one are unsupported.
func (c *Catalog) ExecConfigs() map[string]engine.ExecConfig {
	out := make(map[string]engine.ExecConfig)
	for _, m := range c.models {
		if m.Dtype == "" {
			continue
		}
		out[m.ID] = engine.ExecConfig{Dtype: m.Dtype, Device: m.Device, ContextSize: m.ContextSize}
	}
	return out
}
