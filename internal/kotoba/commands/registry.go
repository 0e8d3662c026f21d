package commands

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
)

// Entry binds one intent's trigger rule, field schema and handler.
type Entry struct {
	Rule    intent.Rule
	Fields  []extract.Field
	Handler Handler
}

// Registry collects the entries of one agent. It is filled at startup,
// sealed once, and read-only afterwards.
type Registry struct {
	agent string

	mu      sync.Mutex
	entries []Entry
	sealed  bool

	matcher  *intent.Matcher
	schemas  map[string]*extract.Extractor
	handlers map[string]Handler
}

// NewRegistry creates an empty registry for agent.
func NewRegistry(agent string) *Registry {
	return &Registry{agent: agent}
}

// Agent returns the agent name.
func (r *Registry) Agent() string { return r.agent }

// Register adds an entry. Entries are matched in registration order unless
// their rule priority says otherwise.
func (r *Registry) Register(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%s: register %q: %w", r.agent, e.Rule.Intent, ErrSealed)
	}
	if e.Rule.Intent == "" {
		return fmt.Errorf("%s: entry has no intent", r.agent)
	}
	if e.Handler == nil {
		return fmt.Errorf("%s: intent %q has no handler", r.agent, e.Rule.Intent)
	}
	for _, prev := range r.entries {
		if prev.Rule.Intent == e.Rule.Intent {
			return fmt.Errorf("%s: intent %q registered twice", r.agent, e.Rule.Intent)
		}
	}
	r.entries = append(r.entries, e)
	return nil
}

// Seal compiles the trigger rules and field schemas. After Seal, Register
// fails with ErrSealed. Sealing twice is a no-op.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil
	}
	if len(r.entries) == 0 {
		return fmt.Errorf("%s: no intents registered", r.agent)
	}

	rules := make([]intent.Rule, 0, len(r.entries))
	schemas := make(map[string]*extract.Extractor, len(r.entries))
	handlers := make(map[string]Handler, len(r.entries))
	for _, e := range r.entries {
		ex, err := extract.New(e.Fields)
		if err != nil {
			return fmt.Errorf("%s: intent %q: %w", r.agent, e.Rule.Intent, err)
		}
		rules = append(rules, e.Rule)
		schemas[e.Rule.Intent] = ex
		handlers[e.Rule.Intent] = e.Handler
	}
	m, err := intent.NewMatcher(rules)
	if err != nil {
		return fmt.Errorf("%s: %w", r.agent, err)
	}

	r.matcher = m
	r.schemas = schemas
	r.handlers = handlers
	r.sealed = true
	return nil
}

// Sealed reports whether Seal has succeeded.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Schema returns the declared fields of intentID.
func (r *Registry) Schema(intentID string) ([]extract.Field, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Rule.Intent == intentID {
			return append([]extract.Field(nil), e.Fields...), true
		}
	}
	return nil, false
}

// Intents lists the registered intents in registration order.
func (r *Registry) Intents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Rule.Intent
	}
	return out
}

var errNotSealed = errors.New("registry is not sealed")

// compiled returns the sealed artifacts.
func (r *Registry) compiled() (*intent.Matcher, map[string]*extract.Extractor, map[string]Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		return nil, nil, nil, fmt.Errorf("%s: %w", r.agent, errNotSealed)
	}
	return r.matcher, r.schemas, r.handlers, nil
}
