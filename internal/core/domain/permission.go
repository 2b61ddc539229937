package domain

import "strings"

// PrincipalType identifies who a permission is granted to.
type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalGroup  PrincipalType = "group"
	PrincipalDomain PrincipalType = "domain"
	PrincipalAnyone PrincipalType = "anyone"
)

// Role is a Drive permission role.
type Role string

const (
	RoleReader        Role = "reader"
	RoleCommenter     Role = "commenter"
	RoleWriter        Role = "writer"
	RoleFileOrganizer Role = "fileOrganizer"
	RoleOrganizer     Role = "organizer"
	RoleOwner         Role = "owner"
)

var roleRank = map[Role]int{
	RoleReader:        1,
	RoleCommenter:     2,
	RoleWriter:        3,
	RoleFileOrganizer: 4,
	RoleOrganizer:     5,
	RoleOwner:         6,
}

// IsValid returns true for roles Drive accepts.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Covers returns true if r grants at least the access of other.
func (r Role) Covers(other Role) bool {
	return roleRank[r] >= roleRank[other] && roleRank[other] > 0
}

// Principal is the grantee of a permission.
type Principal struct {
	Type PrincipalType `json:"type"`
	// Address is an email for users and groups, a domain name for domains,
	// and empty for anyone.
	Address string `json:"address,omitempty"`
}

// String renders the principal as type:address.
func (p Principal) String() string {
	if p.Type == PrincipalAnyone {
		return string(PrincipalAnyone)
	}
	return string(p.Type) + ":" + p.Address
}

// ParsePrincipal parses "user:a@b.c", "group:...", "domain:example.com" or "anyone".
// A bare email address is treated as a user.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == string(PrincipalAnyone) {
		return Principal{Type: PrincipalAnyone}, nil
	}
	kind, addr, found := strings.Cut(s, ":")
	if !found {
		if strings.Contains(s, "@") {
			return Principal{Type: PrincipalUser, Address: s}, nil
		}
		return Principal{}, ErrInvalidInput
	}
	switch PrincipalType(kind) {
	case PrincipalUser, PrincipalGroup, PrincipalDomain:
		if addr == "" {
			return Principal{}, ErrInvalidInput
		}
		return Principal{Type: PrincipalType(kind), Address: addr}, nil
	default:
		return Principal{}, ErrInvalidInput
	}
}

// Permission is a flattened Drive permission.
type Permission struct {
	ID                 string        `json:"id"`
	Type               PrincipalType `json:"type"`
	Role               Role          `json:"role"`
	EmailAddress       string        `json:"email_address,omitempty"`
	Domain             string        `json:"domain,omitempty"`
	DisplayName        string        `json:"display_name,omitempty"`
	AllowFileDiscovery bool          `json:"allow_file_discovery,omitempty"`
}

// Principal returns who the permission is granted to.
func (p *Permission) Principal() Principal {
	switch p.Type {
	case PrincipalDomain:
		return Principal{Type: p.Type, Address: p.Domain}
	case PrincipalAnyone:
		return Principal{Type: p.Type}
	default:
		return Principal{Type: p.Type, Address: p.EmailAddress}
	}
}

// Matches reports whether the permission belongs to the principal.
// Addresses compare case-insensitively.
func (p *Permission) Matches(principal Principal) bool {
	own := p.Principal()
	return own.Type == principal.Type && strings.EqualFold(own.Address, principal.Address)
}

// Authorization grants a role to a principal.
type Authorization struct {
	Principal Principal `json:"principal"`
	Role      Role      `json:"role"`
	// Searchable makes domain/anyone grants discoverable in search.
	Searchable bool `json:"searchable,omitempty"`
	// Notify sends the notification email for user and group grants.
	Notify bool `json:"notify,omitempty"`
}

// Validate checks the role and that the principal carries an address when
// its type needs one.
func (a Authorization) Validate() error {
	if !a.Role.IsValid() {
		return ErrInvalidInput
	}
	switch a.Principal.Type {
	case PrincipalAnyone:
		return nil
	case PrincipalUser, PrincipalGroup, PrincipalDomain:
		if a.Principal.Address == "" {
			return ErrInvalidInput
		}
		return nil
	default:
		return ErrInvalidInput
	}
}
