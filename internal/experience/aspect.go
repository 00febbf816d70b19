package experience

import (
	"strings"
	"sync"
)

// Aspect is a closed enumeration of the rating dimensions a record may
// score. Well-known aspects are compiled in; deployments can register
// additional aspects at startup via RegisterAspect instead of dispatching
// on raw strings.
type Aspect int

const (
	AspectUnknown Aspect = iota
	AspectPerformance
	AspectReliability
	AspectUsability
	AspectDocumentation
	AspectCommunity
	AspectMaturity
	AspectSecurity
	AspectScalability
)

var aspectNames = map[Aspect]string{
	AspectPerformance:   "performance",
	AspectReliability:   "reliability",
	AspectUsability:     "usability",
	AspectDocumentation: "documentation",
	AspectCommunity:     "community",
	AspectMaturity:      "maturity",
	AspectSecurity:      "security",
	AspectScalability:   "scalability",
}

var (
	aspectMu       sync.RWMutex
	aspectRegistry = buildAspectRegistry()
	nextAspect     = AspectScalability + 1
)

func buildAspectRegistry() map[string]Aspect {
	reg := make(map[string]Aspect, len(aspectNames))
	for a, name := range aspectNames {
		reg[name] = a
	}
	return reg
}

// String returns the canonical lowercase name of the aspect.
func (a Aspect) String() string {
	aspectMu.RLock()
	defer aspectMu.RUnlock()
	if name, ok := aspectNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAspect resolves an aspect name to its enum value. The second return
// is false for names that are neither built in nor registered.
func ParseAspect(name string) (Aspect, bool) {
	aspectMu.RLock()
	defer aspectMu.RUnlock()
	a, ok := aspectRegistry[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// RegisterAspect adds a runtime-defined aspect to the registry and returns
// its value. Registering an existing name returns the existing value.
func RegisterAspect(name string) Aspect {
	key := strings.ToLower(strings.TrimSpace(name))
	aspectMu.Lock()
	defer aspectMu.Unlock()
	if a, ok := aspectRegistry[key]; ok {
		return a
	}
	a := nextAspect
	nextAspect++
	aspectRegistry[key] = a
	aspectNames[a] = key
	return a
}

// KnownAspects returns the names of all registered aspects, built-in and
// runtime-defined.
func KnownAspects() []string {
	aspectMu.RLock()
	defer aspectMu.RUnlock()
	names := make([]string, 0, len(aspectRegistry))
	for name := range aspectRegistry {
		names = append(names, name)
	}
	return names
}
