// Package access decides what a parish member may see and manage.
//
// Entities describe themselves with a Rules value; one resolver applies the same
// precedence to all of them: tenant, authorship, draft, approval, then scope.
package access

type (
	ParishRole       string
	GroupRole        string
	MembershipStatus string
	Scope            string
	Approval         string
	ChannelType      string
)

// Parish roles
const (
	RoleAdmin    ParishRole = "ADMIN"
	RoleShepherd ParishRole = "SHEPHERD" // clergy
	RoleMember   ParishRole = "MEMBER"
)

// Group roles
const (
	GroupCoordinator GroupRole = "COORDINATOR"
	GroupLead        GroupRole = "LEAD"
	GroupMember      GroupRole = "MEMBER"
)

// Membership statuses
const (
	StatusActive    MembershipStatus = "ACTIVE"
	StatusInvited   MembershipStatus = "INVITED"
	StatusRequested MembershipStatus = "REQUESTED"
	StatusInactive  MembershipStatus = "INACTIVE"
)

// Scopes
const (
	ScopePublic        Scope = "PUBLIC"
	ScopePrivate       Scope = "PRIVATE"
	ScopeGroup         Scope = "GROUP"
	ScopeParish        Scope = "PARISH"
	ScopeChat          Scope = "CHAT"
	ScopeClergyOnly    Scope = "CLERGY_ONLY"
	ScopeAdminAll      Scope = "ADMIN_ALL"
	ScopeAdminSpecific Scope = "ADMIN_SPECIFIC"
)

// Approval statuses
const (
	ApprovalPending  Approval = "PENDING"
	ApprovalApproved Approval = "APPROVED"
	ApprovalRejected Approval = "REJECTED"
)

// Chat channel types
const (
	ChannelParish       ChannelType = "PARISH"
	ChannelAnnouncement ChannelType = "ANNOUNCEMENT"
	ChannelGroup        ChannelType = "GROUP"
)

var (
	ParishRoles = []ParishRole{RoleAdmin, RoleShepherd, RoleMember}
	GroupRoles  = []GroupRole{GroupCoordinator, GroupLead, GroupMember}
)

func (r ParishRole) Valid() bool {
	return r == RoleAdmin || r == RoleShepherd || r == RoleMember
}

func (r GroupRole) Valid() bool {
	return r == GroupCoordinator || r == GroupLead || r == GroupMember
}

func (r GroupRole) Leads() bool {
	return r == GroupCoordinator || r == GroupLead
}

type Channel struct {
	ID      string      `json:"id"`
	Type    ChannelType `json:"type"`
	GroupID string      `json:"group_id,omitempty"` // GROUP channels only
}

type GroupMembership struct {
	Role   GroupRole        `json:"role"`
	Status MembershipStatus `json:"status"`
}

// Viewer is everything the resolver knows about who is looking. Callers fetch it once per request.
type Viewer struct {
	UserID           string
	ParishID         string
	Role             ParishRole // empty when not a member of ParishID
	IsSuperAdmin     bool
	Groups           map[string]GroupMembership // by group id
	ExcludedChannels map[string]bool            // channel ids the viewer was removed from
}

// Rules is the declarative ruleset an entity supplies to the resolver.
type Rules struct {
	ParishID         string
	Authors          []string // always see the entity: owner, creator, requester
	Owners           []string // may manage the entity
	Scope            Scope
	Draft            bool // only leaders and authors see drafts
	RequiresApproval bool // non authors only see it once approved
	Approval         Approval
	GroupID          string
	Channel          *Channel // CHAT scope
	Assignees        []string // ADMIN_SPECIFIC scope
}

// Subject is implemented by every entity subject to visibility rules.
type Subject interface {
	AccessRules() Rules
}
