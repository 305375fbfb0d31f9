package trend

// SupportedCountries is the fixed three-country comparison set. Order here
// is the canonical order passed to the upstream connector's by-country
// fetch; response ordering is determined separately by sort value.
var SupportedCountries = []string{"MX", "CR", "ES"}

// IsSupportedCountry reports whether code is one of the supported countries.
func IsSupportedCountry(code string) bool {
	for _, c := range SupportedCountries {
		if c == code {
			return true
		}
	}
	return false
}
