package ir

// Resource is a single desired resource as produced by the configuration
// layer. Resources are transient: they exist only for the duration of a
// planning cycle. The attribute map holds scalars, lists, and nested maps.
type Resource struct {
	Type       string         `json:"type" yaml:"type"`
	Name       string         `json:"name" yaml:"name"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
	DependsOn  []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Address returns the unique address of the resource (type.name).
func (r *Resource) Address() string {
	return r.Type + "." + r.Name
}
