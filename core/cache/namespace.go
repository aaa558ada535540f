package cache

import "strings"

// Kind names a logical cache partition.
type Kind string

const (
	// KindStatic holds versioned bundle assets seeded at install time.
	KindStatic Kind = "static"
	// KindDynamic holds API and navigation responses cached at runtime.
	KindDynamic Kind = "dynamic"
)

// Registry names the live cache namespaces. Exactly one version of each
// Kind is active at any time; every other version owned by the same prefix
// is garbage on activation.
type Registry struct {
	Prefix  string
	Version string
}

func NewRegistry(prefix, version string) Registry {
	return Registry{Prefix: prefix, Version: version}
}

// Name returns the versioned namespace name for a Kind,
// e.g. "protextify-static-v3".
func (r Registry) Name(k Kind) string {
	return r.Prefix + "-" + string(k) + "-" + r.Version
}

func (r Registry) Static() string  { return r.Name(KindStatic) }
func (r Registry) Dynamic() string { return r.Name(KindDynamic) }

// Current returns the active namespace pair.
func (r Registry) Current() []string {
	return []string{r.Static(), r.Dynamic()}
}

// IsCurrent reports whether name is one of the active namespaces.
func (r Registry) IsCurrent(name string) bool {
	return name == r.Static() || name == r.Dynamic()
}

// Owns reports whether name belongs to this registry's prefix, regardless
// of version. Foreign namespaces are never evicted.
func (r Registry) Owns(name string) bool {
	return strings.HasPrefix(name, r.Prefix+"-")
}
