package domain

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
)

// Policy computes a principal's vault budget: a role baseline (or the default)
// plus an optional department bonus. Unlimited roles bypass the ledger check.
type Policy struct {
	Default           int64
	RoleBaselines     map[string]int64
	DepartmentBonuses map[string]int64
	UnlimitedRoles    map[string]struct{}
}

// ParsePolicy builds a Policy from human-readable configuration, e.g.
// defaultSize "1GiB", roles "manager:10GiB,employee:1GiB", departments "legal:5GiB",
// unlimited "admin".
func ParsePolicy(defaultSize, roles, departments, unlimited string) (*Policy, error) {
	def, err := parseSize(defaultSize)
	if err != nil {
		return nil, fmt.Errorf("%w: default: %w", ErrInvalidPolicy, err)
	}

	roleBaselines, err := parseSizeList(roles)
	if err != nil {
		return nil, fmt.Errorf("%w: role baselines: %w", ErrInvalidPolicy, err)
	}

	departmentBonuses, err := parseSizeList(departments)
	if err != nil {
		return nil, fmt.Errorf("%w: department bonuses: %w", ErrInvalidPolicy, err)
	}

	unlimitedRoles := make(map[string]struct{})
	for _, role := range strings.Split(unlimited, ",") {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			unlimitedRoles[role] = struct{}{}
		}
	}

	return &Policy{
		Default:           def,
		RoleBaselines:     roleBaselines,
		DepartmentBonuses: departmentBonuses,
		UnlimitedRoles:    unlimitedRoles,
	}, nil
}

// LimitFor returns the principal's budget in bytes and whether it is unlimited.
func (p *Policy) LimitFor(principal *authDomain.Principal) (int64, bool) {
	role := strings.ToLower(principal.Role)
	if _, ok := p.UnlimitedRoles[role]; ok {
		return 0, true
	}

	limit, ok := p.RoleBaselines[role]
	if !ok {
		limit = p.Default
	}
	limit += p.DepartmentBonuses[strings.ToLower(principal.Department)]
	return limit, false
}

func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func parseSizeList(s string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("entry %q must be name:size", entry)
		}
		n, err := parseSize(value)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		out[key] = n
	}
	return out, nil
}
