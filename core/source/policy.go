package source

import "strings"

// neutronOnly lists spontaneous-fission emitters whose catalogue lines are
// neutron yield spectra. Photon kerma and dose tables do not apply to them.
var neutronOnly = map[string]struct{}{
	"CF-252": {},
	"CM-244": {},
}

// IsNeutronOnly reports whether dose-rate conversion is inapplicable to the
// isotope. Only flux is meaningful for these.
func IsNeutronOnly(isotope string) bool {
	_, ok := neutronOnly[strings.ToUpper(strings.TrimSpace(isotope))]
	return ok
}
