package skill

import "sync"

// Registry is the catalog of available skills. Built-in skills are loaded
// lazily on the first All or Get call, exactly once for the registry's
// lifetime; loading is a no-op when skills were already registered. The
// registry is constructed by the application and handed to the
// orchestrator so tests can build isolated instances.
type Registry struct {
	mu     sync.RWMutex
	once   sync.Once
	loader func(*Registry)
	order  []string
	skills map[string]Skill
}

// NewRegistry creates a registry. loadBuiltins, if non-nil, is invoked
// once on first lookup to populate the built-in skill set.
func NewRegistry(loadBuiltins func(*Registry)) *Registry {
	return &Registry{
		loader: loadBuiltins,
		skills: make(map[string]Skill),
	}
}

// Register inserts a skill, overwriting any skill with the same name.
func (r *Registry) Register(s Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[s.Name()]; !exists {
		r.order = append(r.order, s.Name())
	}
	r.skills[s.Name()] = s
}

// All returns every registered skill in registration order, loading
// built-ins first if needed.
func (r *Registry) All() []Skill {
	r.loadOnce()
	r.mu.RLock()
	defer r.mu.RUnlock()
	skills := make([]Skill, 0, len(r.order))
	for _, name := range r.order {
		skills = append(skills, r.skills[name])
	}
	return skills
}

// Get returns the named skill, loading built-ins first if needed.
func (r *Registry) Get(name string) (Skill, bool) {
	r.loadOnce()
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

func (r *Registry) loadOnce() {
	r.once.Do(func() {
		r.mu.RLock()
		populated := len(r.skills) > 0
		r.mu.RUnlock()
		if populated || r.loader == nil {
			return
		}
		r.loader(r)
	})
}

// Validate checks a skill's identity fields and returns a list of
// human-readable issues; an empty list means the skill is valid.
func Validate(s Skill) []string {
	var issues []string
	if s.Name() == "" {
		issues = append(issues, "skill has no name")
	}
	if s.Version() == "" {
		issues = append(issues, "skill has no version")
	}
	if s.Description() == "" {
		issues = append(issues, "skill has no description")
	}
	if len(s.Stakeholders()) == 0 {
		issues = append(issues, "skill has no stakeholders defined")
	}
	return issues
}
