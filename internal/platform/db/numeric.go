package db

import (
	"fmt"
	"strconv"

	"github.com/healthpool/riskpool/internal/shared"
)

// ParseAmount decodes a NUMERIC(20,0) column selected as text.
func ParseAmount(raw string) (shared.Amount, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("platform/db: numeric %q: %w", raw, err)
	}
	return shared.Amount(v), nil
}

// ParsePrincipal decodes an address column.
func ParsePrincipal(raw string) (shared.Principal, error) {
	p, err := shared.ParsePrincipal(raw)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("platform/db: principal: %w", err)
	}
	return p, nil
}

// NullPrincipal maps the zero principal to SQL NULL.
func NullPrincipal(p shared.Principal) *string {
	if p.IsZero() {
		return nil
	}
	s := p.String()
	return &s
}
