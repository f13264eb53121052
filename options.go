package neuro

// DefaultMaxDepth bounds group nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 128

// Options configures Writers, Readers and the JSON engines.
// A nil *Options means the defaults.
type Options struct {
	// Pool, when set, supplies instances to readers instead of allocating and
	// receives instances that a read discards. Results are identical with or
	// without a pool.
	Pool Pool

	// MaxDepth limits how deeply groups may nest, on write and on read.
	MaxDepth int

	// JSONTypeNames writes "-subType"/"-globalType" as "tag:TypeName" instead
	// of the bare tag number.
	JSONTypeNames bool

	// JSONIndent, when non-empty, indents JSON output with this string.
	JSONIndent string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() *Options {
	return &Options{MaxDepth: DefaultMaxDepth, JSONTypeNames: true}
}

// WithPool sets the object pool and returns o for chaining.
func (o *Options) WithPool(p Pool) *Options {
	o.Pool = p
	return o
}

// WithMaxDepth sets the nesting limit and returns o for chaining.
func (o *Options) WithMaxDepth(depth int) *Options {
	o.MaxDepth = depth
	return o
}

// WithJSONTypeNames toggles type names in JSON type markers.
func (o *Options) WithJSONTypeNames(names bool) *Options {
	o.JSONTypeNames = names
	return o
}

// WithJSONIndent sets the JSON indentation string.
func (o *Options) WithJSONIndent(indent string) *Options {
	o.JSONIndent = indent
	return o
}

func (o *Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func orDefault(o *Options) *Options {
	if o == nil {
		return DefaultOptions()
	}
	return o
}
