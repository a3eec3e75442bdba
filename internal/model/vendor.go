package model

// VendorVariationSet is the canonical spelling of a merchant name plus
// every alternate spelling considered equivalent to it. Produced by the
// vendor normalizer; never stored.
type VendorVariationSet struct {
	Canonical string
	Variants  []string
}

// Contains reports whether the given spelling is in the variation set.
func (v VendorVariationSet) Contains(s string) bool {
	for _, variant := range v.Variants {
		if variant == s {
			return true
		}
	}
	return false
}

// Empty reports whether the set has no variants.
func (v VendorVariationSet) Empty() bool {
	return len(v.Variants) == 0
}
