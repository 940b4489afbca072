package aggregator

// Permission gates mutating calls.
type Permission string

const (
	// PermAdmin covers configuration: configure, batch weight updates and
	// priority order replacement.
	PermAdmin Permission = "admin"
	// PermOperator covers operational calls: toggling sources and refreshing
	// the cache. Admins hold it implicitly.
	PermOperator Permission = "operator"
)

// AccessController decides whether a caller holds a permission.
type AccessController interface {
	Allow(caller string, perm Permission) bool
}

// StaticACL is a map-backed access controller built from configuration.
type StaticACL struct {
	admins    map[string]bool
	operators map[string]bool
}

var _ AccessController = (*StaticACL)(nil)

// NewStaticACL creates an access controller from caller lists.
func NewStaticACL(admins, operators []string) *StaticACL {
	acl := &StaticACL{
		admins:    make(map[string]bool, len(admins)),
		operators: make(map[string]bool, len(operators)),
	}
	for _, caller := range admins {
		acl.admins[caller] = true
	}
	for _, caller := range operators {
		acl.operators[caller] = true
	}
	return acl
}

// Allow implements AccessController. Admin implies operator.
func (a *StaticACL) Allow(caller string, perm Permission) bool {
	switch perm {
	case PermAdmin:
		return a.admins[caller]
	case PermOperator:
		return a.operators[caller] || a.admins[caller]
	default:
		return false
	}
}

// AllowAll grants every permission to every caller. Intended for tests and
// single-tenant deployments with no access lists configured.
type AllowAll struct{}

// Allow implements AccessController.
func (AllowAll) Allow(string, Permission) bool { return true }
