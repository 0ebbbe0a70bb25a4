package modkit

// Option mutates build configuration for a module
type Option func(*buildCfg)

// buildCfg is internal wiring state for options
type buildCfg struct {
	name   string
	prefix string
	ports  []any
}

// WithName overrides the module name used in logs
func WithName(name string) Option {
	return func(c *buildCfg) { c.name = name }
}

// WithPrefix overrides the env prefix the module reads its options from
func WithPrefix(prefix string) Option {
	return func(c *buildCfg) { c.prefix = prefix }
}

// WithPorts injects collaborators owned by the caller, such as a prebuilt index
// the module picks the ones it understands by type
func WithPorts(p ...any) Option {
	return func(c *buildCfg) { c.ports = append(c.ports, p...) }
}
