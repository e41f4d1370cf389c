package filter

// Matcher decides whether a frame is kept.
type Matcher interface {
	Match(frame []byte) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(frame []byte) bool

func (f MatcherFunc) Match(frame []byte) bool { return f(frame) }

// Chain keeps a frame only when every matcher accepts it, evaluated in order
// and stopping at the first rejection. An empty chain keeps everything.
type Chain struct {
	matchers []Matcher
}

// NewChain copies matchers into a chain, skipping nil entries.
func NewChain(matchers ...Matcher) *Chain {
	c := &Chain{matchers: make([]Matcher, 0, len(matchers))}
	for _, m := range matchers {
		c.Add(m)
	}
	return c
}

// Add appends m to the chain.
func (c *Chain) Add(m Matcher) *Chain {
	if m != nil {
		c.matchers = append(c.matchers, m)
	}
	return c
}

// Len returns the number of matchers.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.matchers)
}

func (c *Chain) Match(frame []byte) bool {
	if c == nil {
		return true
	}
	for _, m := range c.matchers {
		if !m.Match(frame) {
			return false
		}
	}
	return true
}
