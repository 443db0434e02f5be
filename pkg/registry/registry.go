package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirosfoundation/go-smp/pkg/identifier"
)

// Common errors
var (
	// ErrInvalidConfig is returned when a registry configuration is rejected
	ErrInvalidConfig = errors.New("invalid registry configuration")
	// ErrDuplicateID is returned when two registries share an ID
	ErrDuplicateID = errors.New("duplicate registry ID")
)

// AutoDetectID is the reserved pseudo registry ID that requests probing all
// registries. It never resolves to a configuration.
const AutoDetectID = "auto-detect"

// autoDetectAlias is accepted for compatibility with older clients.
const autoDetectAlias = "autodetect"

// IsAutoDetect reports whether id is the auto-detect sentinel.
func IsAutoDetect(id string) bool {
	return id == AutoDetectID || id == autoDetectAlias
}

// Variant is the SMP wire protocol spoken by the SMPs of a registry.
type Variant string

const (
	// VariantPeppol is Peppol SMP 1.x (busdox namespaces)
	VariantPeppol Variant = "peppol"
	// VariantBDXR1 is OASIS BDXR SMP 1.0
	VariantBDXR1 Variant = "bdxr1"
	// VariantBDXR2 is OASIS BDXR SMP 2.0
	VariantBDXR2 Variant = "bdxr2"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantPeppol, VariantBDXR1, VariantBDXR2:
		return true
	}
	return false
}

// DefaultFamily returns the identifier family normally paired with v.
func (v Variant) DefaultFamily() identifier.Family {
	switch v {
	case VariantBDXR1:
		return identifier.BDXR1
	case VariantBDXR2:
		return identifier.BDXR2
	default:
		return identifier.Peppol
	}
}

// ParseVariant resolves a variant name, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: unknown protocol variant %q", ErrInvalidConfig, s)
	}
	return v, nil
}

// Config describes one registry.
type Config struct {
	// ID is unique within a catalog
	ID string `json:"id" yaml:"id"`

	// DisplayName is a human readable name
	DisplayName string `json:"displayName" yaml:"displayName"`

	// DNSZone is the zone appended to the hashed participant label
	DNSZone string `json:"dnsZone" yaml:"dnsZone"`

	// Variant is the protocol spoken by the SMPs of this registry
	Variant Variant `json:"variant" yaml:"variant"`

	// Family validates participant identifiers for this registry.
	// Defaults to the variant's family.
	Family identifier.Family `json:"family" yaml:"family"`

	// Production marks production registries; they win priority ties
	Production bool `json:"production" yaml:"production"`

	// Priority orders auto-detection, highest first
	Priority int `json:"priority" yaml:"priority"`

	// PinsCertificates is true when SMP TLS certificates of this registry are
	// validated against a pinned trust store instead of being trusted blindly
	PinsCertificates bool `json:"pinsCertificates" yaml:"pinsCertificates"`

	// Strategy overrides the DNS resolution strategy of the variant
	// (e.g. "peppol-naptr", "bdxl", "legacy-cname"). Empty uses the default.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

func (c Config) String() string {
	return fmt.Sprintf("%s (%s, %s)", c.ID, c.Variant, c.DNSZone)
}

func (c *Config) normalize() error {
	c.ID = strings.TrimSpace(c.ID)
	c.DNSZone = strings.TrimSpace(c.DNSZone)

	if c.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidConfig)
	}
	if IsAutoDetect(c.ID) {
		return fmt.Errorf("%w: ID %q is reserved", ErrInvalidConfig, c.ID)
	}
	if c.DNSZone == "" || c.DNSZone == "." {
		return fmt.Errorf("%w: registry %s has no DNS zone", ErrInvalidConfig, c.ID)
	}
	if !c.Variant.Valid() {
		return fmt.Errorf("%w: registry %s has unknown variant %q", ErrInvalidConfig, c.ID, c.Variant)
	}
	if c.Family == "" {
		c.Family = c.Variant.DefaultFamily()
	}
	if !c.Family.Valid() {
		return fmt.Errorf("%w: registry %s has unknown identifier family %q", ErrInvalidConfig, c.ID, c.Family)
	}
	if c.DisplayName == "" {
		c.DisplayName = c.ID
	}
	return nil
}

// Catalog is an immutable set of registries keyed by ID.
type Catalog struct {
	byID    map[string]Config
	ordered []Config
}

// NewCatalog validates configs and builds a catalog.
func NewCatalog(configs ...Config) (*Catalog, error) {
	c := &Catalog{
		byID:    make(map[string]Config, len(configs)),
		ordered: make([]Config, 0, len(configs)),
	}

	for _, cfg := range configs {
		if err := cfg.normalize(); err != nil {
			return nil, err
		}
		if _, exists := c.byID[cfg.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, cfg.ID)
		}
		c.byID[cfg.ID] = cfg
		c.ordered = append(c.ordered, cfg)
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		return less(c.ordered[i], c.ordered[j])
	})

	return c, nil
}

// less orders by priority desc, production first, then ID asc.
func less(a, b Config) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Production != b.Production {
		return a.Production
	}
	return a.ID < b.ID
}

// Get returns the registry with the given ID. The auto-detect sentinel is
// never found.
func (c *Catalog) Get(id string) (Config, bool) {
	if IsAutoDetect(id) {
		return Config{}, false
	}
	cfg, ok := c.byID[id]
	return cfg, ok
}

// Ordered returns all registries in auto-detect order. The slice is a copy.
func (c *Catalog) Ordered() []Config {
	out := make([]Config, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of registries.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// IDs returns all registry IDs in auto-detect order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.ordered))
	for i, cfg := range c.ordered {
		ids[i] = cfg.ID
	}
	return ids
}
