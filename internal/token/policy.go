package token

import "time"

// RefreshPolicy decides when a refresh token is close enough to expiry to
// warrant silent replacement.
type RefreshPolicy struct {
	// Lifetime of the REFRESH class.
	Lifetime time.Duration
	// Threshold is the elapsed-lifetime fraction at which a token becomes
	// eligible, e.g. 0.75 of 14 days means eligible after 10.5 days.
	Threshold float64
}

// EligibleForRefresh reports whether a refresh token issued at issuedAt has
// aged past the threshold. Exactly at the threshold counts as eligible.
func (p RefreshPolicy) EligibleForRefresh(issuedAt time.Time) bool {
	elapsed := time.Since(issuedAt)
	return float64(elapsed) >= p.Threshold*float64(p.Lifetime)
}
