package access

// Anonymous is a viewer that belongs to no parish.
var Anonymous = Viewer{}

// MemberOf is a plain member viewer with no user, used for parish-wide digests.
func MemberOf(parishID string) Viewer {
	return Viewer{ParishID: parishID, Role: RoleMember}
}

func (v Viewer) IsMember() bool {
	return v.Role.Valid() || v.IsSuperAdmin
}

// IsLeader reports whether the viewer leads the parish (ADMIN or SHEPHERD).
func (v Viewer) IsLeader() bool {
	return v.Role == RoleAdmin || v.Role == RoleShepherd || v.IsSuperAdmin
}

func (v Viewer) IsAdmin() bool {
	return v.Role == RoleAdmin || v.IsSuperAdmin
}

func (v Viewer) IsClergy() bool {
	return v.Role == RoleShepherd
}

// ActiveIn reports an ACTIVE membership of groupID.
func (v Viewer) ActiveIn(groupID string) bool {
	if groupID == "" {
		return false
	}
	gm, ok := v.Groups[groupID]
	return ok && gm.Status == StatusActive
}

// LeadsGroup reports an ACTIVE COORDINATOR or LEAD membership of groupID.
func (v Viewer) LeadsGroup(groupID string) bool {
	if !v.ActiveIn(groupID) {
		return false
	}
	return v.Groups[groupID].Role.Leads()
}

func (v Viewer) ExcludedFrom(channelID string) bool {
	return v.ExcludedChannels[channelID]
}

func (v Viewer) is(userIDs []string) bool {
	if v.UserID == "" {
		return false
	}
	for _, id := range userIDs {
		if id == v.UserID {
			return true
		}
	}
	return false
}
