package access

func sameParish(r Rules, v Viewer) bool {
	if v.IsSuperAdmin {
		return true
	}
	return r.ParishID == "" || r.ParishID == v.ParishID
}

// CanView reports whether v may see s.
func CanView(s Subject, v Viewer) bool {
	r := s.AccessRules()
	if !sameParish(r, v) {
		return false
	}
	if v.is(r.Authors) {
		return true
	}
	if !v.IsMember() {
		return false
	}
	if r.Draft {
		return v.IsLeader()
	}
	if r.RequiresApproval && r.Approval != ApprovalApproved {
		return false
	}
	return scopeAllows(r, v)
}

func scopeAllows(r Rules, v Viewer) bool {
	switch r.Scope {
	case ScopePublic, ScopeParish:
		return true
	case ScopePrivate:
		return false
	case ScopeGroup:
		return v.ActiveIn(r.GroupID) || v.IsLeader()
	case ScopeChat:
		return channelAllows(r.Channel, v)
	case ScopeClergyOnly:
		return v.IsClergy()
	case ScopeAdminAll:
		return v.IsAdmin() || v.IsClergy()
	case ScopeAdminSpecific:
		return (v.IsAdmin() || v.IsClergy()) && v.is(r.Assignees)
	default:
		return false
	}
}

func channelAllows(ch *Channel, v Viewer) bool {
	if ch == nil {
		return false
	}
	switch ch.Type {
	case ChannelGroup:
		return v.ActiveIn(ch.GroupID)
	case ChannelParish, ChannelAnnouncement:
		return !v.ExcludedFrom(ch.ID)
	default:
		return false
	}
}

// CanManage reports whether v may edit, approve or delete s.
func CanManage(s Subject, v Viewer) bool {
	r := s.AccessRules()
	if !sameParish(r, v) || !v.IsMember() {
		return false
	}
	if v.IsLeader() {
		return true
	}
	if r.GroupID != "" && v.LeadsGroup(r.GroupID) {
		return true
	}
	return v.is(r.Owners)
}

// Filter keeps the subjects v may see, preserving order.
func Filter[S Subject](subjects []S, v Viewer) []S {
	visible := make([]S, 0, len(subjects))
	for _, s := range subjects {
		if CanView(s, v) {
			visible = append(visible, s)
		}
	}
	return visible
}
