package listener

import (
	"sort"
	"strings"
	"sync"

	"github.com/foxseedlab/jimaku/internal/translator"
)

const DefaultTargetLanguage = "ja"

type Settings struct {
	ConnectionID   string
	TargetLanguage string
	Style          translator.Style
}

// Update carries the fields a listener wants to change; nil fields are left as they are.
type Update struct {
	TargetLanguage *string
	Style          *string
}

// Registry maps connection ids to listener settings. The lock is only held for map access,
// never while a caller is translating or delivering.
type Registry struct {
	defaults Settings

	mu        sync.RWMutex
	listeners map[string]Settings
}

func NewRegistry(defaultTargetLanguage string, defaultStyle translator.Style) *Registry {
	if strings.TrimSpace(defaultTargetLanguage) == "" {
		defaultTargetLanguage = DefaultTargetLanguage
	}
	return &Registry{
		defaults: Settings{
			TargetLanguage: defaultTargetLanguage,
			Style:          defaultStyle.Resolve(),
		},
		listeners: make(map[string]Settings),
	}
}

// OnConnect registers id with the default settings, resetting any previous entry.
func (r *Registry) OnConnect(id string) Settings {
	s := r.defaults
	s.ConnectionID = id
	r.mu.Lock()
	r.listeners[id] = s
	r.mu.Unlock()
	return s
}

// OnConnectWith registers id with explicit settings and returns what was stored.
func (r *Registry) OnConnectWith(s Settings) Settings {
	if strings.TrimSpace(s.TargetLanguage) == "" {
		s.TargetLanguage = r.defaults.TargetLanguage
	}
	if s.Style == "" {
		s.Style = r.defaults.Style
	}
	r.mu.Lock()
	r.listeners[s.ConnectionID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) OnDisconnect(id string) {
	r.mu.Lock()
	delete(r.listeners, id)
	r.mu.Unlock()
}

// OnUpdate merges u into the entry for id. Unknown ids are ignored and false is returned.
func (r *Registry) OnUpdate(id string, u Update) (Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.listeners[id]
	if !ok {
		return Settings{}, false
	}
	if u.TargetLanguage != nil {
		if lang := strings.TrimSpace(*u.TargetLanguage); lang != "" {
			s.TargetLanguage = lang
		}
	}
	if u.Style != nil {
		if style := strings.TrimSpace(*u.Style); style != "" {
			s.Style = translator.Style(style)
		}
	}
	r.listeners[id] = s
	return s, true
}

func (r *Registry) Get(id string) (Settings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.listeners[id]
	return s, ok
}

// Snapshot returns a copy of all listeners ordered by connection id.
func (r *Registry) Snapshot() []Settings {
	r.mu.RLock()
	out := make([]Settings, 0, len(r.listeners))
	for _, s := range r.listeners {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

func (r *Registry) Clear() {
	r.mu.Lock()
	r.listeners = make(map[string]Settings)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
