package pattern

import (
	"fmt"
	"sync"
)

// RuleFactory builds a rule with the given options
type RuleFactory func(opts ...Option) Rule

// builtin is the default rule set in registry order
var builtin = []RuleFactory{
	func(o ...Option) Rule { return NewAdvanceBlock(o...) },
	func(o ...Option) Rule { return NewHangingMan(o...) },
	func(o ...Option) Rule { return NewHomingPigeon(o...) },
	func(o ...Option) Rule { return NewTriStar(o...) },
	func(o ...Option) Rule { return NewHammer(o...) },
	func(o ...Option) Rule { return NewShootingStar(o...) },
	func(o ...Option) Rule { return NewBullishEngulfing(o...) },
	func(o ...Option) Rule { return NewBearishEngulfing(o...) },
	func(o ...Option) Rule { return NewBullishHarami(o...) },
	func(o ...Option) Rule { return NewBearishHarami(o...) },
	func(o ...Option) Rule { return NewPiercingLine(o...) },
	func(o ...Option) Rule { return NewDarkCloudCover(o...) },
	func(o ...Option) Rule { return NewMorningStar(o...) },
	func(o ...Option) Rule { return NewEveningStar(o...) },
	func(o ...Option) Rule { return NewThreeWhiteSoldiers(o...) },
	func(o ...Option) Rule { return NewThreeBlackCrows(o...) },
}

// Registry is an ordered set of named rules.
// Insertion order decides output order for matches at the same index.
type Registry struct {
	mu     sync.RWMutex
	rules  []Rule
	index  map[string]int
	active int // scans currently holding a snapshot
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// DefaultRegistry returns a registry holding every built-in rule
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	for _, factory := range builtin {
		r.MustRegister(factory(opts...))
	}
	return r
}

// Register appends a rule. It fails for a non-positive window length,
// a duplicate name, or while a scan is using the registry.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("register: %w", ErrInvalidWindow)
	}
	if n := rule.WindowLength(); n < 1 {
		return fmt.Errorf("register %q (window %d): %w", rule.Name(), n, ErrInvalidWindow)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active > 0 {
		return fmt.Errorf("register %q: %w", rule.Name(), ErrRegistryInUse)
	}
	if _, ok := r.index[rule.Name()]; ok {
		return fmt.Errorf("register %q: %w", rule.Name(), ErrDuplicateRule)
	}
	r.index[rule.Name()] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// MustRegister registers a rule or panics
func (r *Registry) MustRegister(rule Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// Get returns a rule by name
func (r *Registry) Get(name string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownRule, name, r.namesLocked())
	}
	return r.rules[i], nil
}

// Rules returns the registered rules in order
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Names returns rule names in registry order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name()
	}
	return names
}

// Len returns the number of registered rules
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Subset returns a new registry with only the named rules, keeping
// this registry's order. No names means all rules.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		want[name] = true
	}

	sub := NewRegistry()
	for _, rule := range r.Rules() {
		if len(want) > 0 && !want[rule.Name()] {
			continue
		}
		if err := sub.Register(rule); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// acquire pins the registry for a scan and returns its rules
func (r *Registry) acquire() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active++
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

func (r *Registry) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
}

// RuleInfo describes a registered rule
type RuleInfo struct {
	Name         string `json:"name"`
	WindowLength int    `json:"window_length"`
}

// Info returns name and window length for every rule
func (r *Registry) Info() []RuleInfo {
	rules := r.Rules()
	infos := make([]RuleInfo, len(rules))
	for i, rule := range rules {
		infos[i] = RuleInfo{Name: rule.Name(), WindowLength: rule.WindowLength()}
	}
	return infos
}
