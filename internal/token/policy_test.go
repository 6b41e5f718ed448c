package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEligibleForRefresh(t *testing.T) {
	policy := RefreshPolicy{Lifetime: 14 * 24 * time.Hour, Threshold: 0.75}
	now := time.Now()

	tests := []struct {
		name     string
		issuedAt time.Time
		want     bool
	}{
		{"two days old", now.Add(-2 * 24 * time.Hour), false},
		{"ten days old", now.Add(-10 * 24 * time.Hour), false},
		{"eleven days old", now.Add(-11 * 24 * time.Hour), true},
		{"past the boundary", now.Add(-time.Duration(0.75*float64(14*24*time.Hour)) - time.Second), true},
		{"thirteen days old", now.Add(-13 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.EligibleForRefresh(tt.issuedAt))
		})
	}
}

func TestEligibleForRefreshBoundaryIsInclusive(t *testing.T) {
	// A generous lifetime keeps the wall-clock drift between computing the
	// boundary and evaluating it on the eligible side of >=.
	policy := RefreshPolicy{Lifetime: 1000 * time.Hour, Threshold: 0.75}
	issuedAt := time.Now().Add(-750 * time.Hour)

	assert.True(t, policy.EligibleForRefresh(issuedAt))
}
