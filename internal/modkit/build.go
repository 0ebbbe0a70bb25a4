package modkit

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Ports  []any
}

// Build applies Option funcs over the module defaults and returns a plain struct
func Build(defName, defPrefix string, opts ...Option) Built {
	c := buildCfg{name: defName, prefix: defPrefix}
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return Built{
		Name:   c.name,
		Prefix: c.prefix,
		Ports:  append([]any(nil), c.ports...),
	}
}

// Port returns the first injected port assignable to T
func Port[T any](b Built) (T, bool) {
	for _, p := range b.Ports {
		if v, ok := p.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
