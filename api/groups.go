package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slowpost/slowpost/store"
)

// loadGroup fetches a group document, returning (nil, nil) when absent.
func (a *API) loadGroup(ctx context.Context, name string) (*Group, error) {
	data, err := a.store.GetDocument(ctx, CollectionGroups, name)
	if err != nil {
		return nil, fmt.Errorf("loading group: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var group Group
	if err := store.Decode(data, &group); err != nil {
		return nil, fmt.Errorf("decoding group: %w", err)
	}
	return &group, nil
}

// findMembership looks up one user's membership in a group.
func (a *API) findMembership(ctx context.Context, groupName, username string) (*Membership, error) {
	links, err := a.store.GetChildLinks(ctx, CollectionMemberships, groupName)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if link.ChildKey != username {
			continue
		}
		var m Membership
		if err := store.Decode(link.Data, &m); err != nil {
			return nil, fmt.Errorf("decoding membership: %w", err)
		}
		return &m, nil
	}
	return nil, nil
}

// isGroupAdmin reports whether the user is an approved admin of the group.
func (a *API) isGroupAdmin(ctx context.Context, groupName, username string) (bool, error) {
	m, err := a.findMembership(ctx, groupName, username)
	if err != nil {
		return false, err
	}
	return m != nil && m.Role == RoleAdmin && m.Status == MemberApproved, nil
}

func groupInfo(g *Group) GroupInfo {
	return GroupInfo{
		Name:        g.Name,
		Description: g.Description,
		Visibility:  g.Visibility,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}
}

// ListGroupsForUser returns the groups a username belongs to. Pending
// memberships are visible only to the user themself.
func (a *API) ListGroupsForUser(ctx context.Context, req *Request) (*Result, error) {
	username := strings.ToLower(req.Params["username"])
	self := req.User != nil && req.User.Username == username

	links, err := a.store.GetParentLinks(ctx, CollectionMemberships, username)
	if err != nil {
		return nil, err
	}
	out := make([]GroupInfo, 0, len(links))
	for _, link := range links {
		var m Membership
		if err := store.Decode(link.Data, &m); err != nil {
			return nil, fmt.Errorf("decoding membership: %w", err)
		}
		if m.Status != MemberApproved && !self {
			continue
		}
		group, err := a.loadGroup(ctx, link.ParentKey)
		if err != nil {
			return nil, err
		}
		if group == nil {
			continue
		}
		if group.Visibility == VisibilityPrivate && !self {
			continue
		}
		out = append(out, groupInfo(group))
	}
	return &Result{Body: out}, nil
}

// GetGroup returns a group and its approved members. Private groups are
// visible only to their approved members.
func (a *API) GetGroup(ctx context.Context, req *Request) (*Result, error) {
	name := strings.ToLower(req.Params["groupName"])
	group, err := a.loadGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, notFound("group %q not found", name)
	}

	if group.Visibility == VisibilityPrivate {
		if req.User == nil {
			return nil, forbidden("group %q is private", name)
		}
		m, err := a.findMembership(ctx, name, req.User.Username)
		if err != nil {
			return nil, err
		}
		if m == nil || m.Status != MemberApproved {
			return nil, forbidden("group %q is private", name)
		}
	}

	links, err := a.store.GetChildLinks(ctx, CollectionMemberships, name)
	if err != nil {
		return nil, err
	}
	members := make([]MemberInfo, 0, len(links))
	for _, link := range links {
		var m Membership
		if err := store.Decode(link.Data, &m); err != nil {
			return nil, fmt.Errorf("decoding membership: %w", err)
		}
		if m.Status != MemberApproved {
			continue
		}
		info, err := a.memberInfo(ctx, link.ChildKey, &m)
		if err != nil {
			return nil, err
		}
		members = append(members, info)
	}

	return &Result{Body: GroupDetail{GroupInfo: groupInfo(group), Members: members}}, nil
}

func (a *API) memberInfo(ctx context.Context, username string, m *Membership) (MemberInfo, error) {
	info := MemberInfo{Username: username, FullName: username, Role: m.Role, Status: m.Status}
	profile, err := a.loadProfile(ctx, username)
	if err != nil {
		return info, err
	}
	if profile != nil && profile.FullName != "" {
		info.FullName = profile.FullName
	}
	return info, nil
}

// CreateGroup creates a group with the caller as its approved admin.
func (a *API) CreateGroup(ctx context.Context, req *Request) (*Result, error) {
	body, err := decodeJSON[CreateGroupRequest](req)
	if err != nil {
		return nil, err
	}
	name, err := validateGroupName(body.Name)
	if err != nil {
		return nil, err
	}
	visibility := body.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if visibility != VisibilityPublic && visibility != VisibilityPrivate {
		return nil, badRequest("visibility must be %q or %q", VisibilityPublic, VisibilityPrivate)
	}

	now := time.Now().UTC()
	group := Group{
		Name:        name,
		Description: body.Description,
		Visibility:  visibility,
		CreatedBy:   req.User.Username,
		CreatedAt:   now,
	}
	data, err := store.Encode(group)
	if err != nil {
		return nil, err
	}
	if err := a.store.AddDocument(ctx, CollectionGroups, name, data); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("group %q already exists", name)
		}
		return nil, err
	}

	membership := Membership{Role: RoleAdmin, Status: MemberApproved, JoinedAt: now}
	mdata, err := store.Encode(membership)
	if err != nil {
		return nil, err
	}
	if err := a.store.AddLink(ctx, CollectionMemberships, name, req.User.Username, mdata); err != nil {
		return nil, fmt.Errorf("adding creator membership: %w", err)
	}

	a.audit.logUser(ctx, AuditGroupCreated, req, req.User.Username)
	creator, err := a.memberInfo(ctx, req.User.Username, &membership)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status: http.StatusCreated,
		Body:   GroupDetail{GroupInfo: groupInfo(&group), Members: []MemberInfo{creator}},
	}, nil
}

// JoinGroup requests membership. New members start pending until an admin
// approves them.
func (a *API) JoinGroup(ctx context.Context, req *Request) (*Result, error) {
	name := strings.ToLower(req.Params["groupName"])
	group, err := a.loadGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, notFound("group %q not found", name)
	}

	membership := Membership{Role: RoleMember, Status: MemberPending, JoinedAt: time.Now().UTC()}
	data, err := store.Encode(membership)
	if err != nil {
		return nil, err
	}
	if err := a.store.AddLink(ctx, CollectionMemberships, name, req.User.Username, data); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("already a member of %q", name)
		}
		return nil, err
	}

	a.audit.logUser(ctx, AuditGroupJoined, req, req.User.Username)
	info, err := a.memberInfo(ctx, req.User.Username, &membership)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusCreated, Body: info}, nil
}

// UpdateMember changes a membership's status or role. Admins only.
// Approving a pending member emits an "approved" update to their feed.
func (a *API) UpdateMember(ctx context.Context, req *Request) (*Result, error) {
	name := strings.ToLower(req.Params["groupName"])
	member := strings.ToLower(req.Params["username"])

	admin, err := a.isGroupAdmin(ctx, name, req.User.Username)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, forbidden("only group admins can manage members")
	}

	body, err := decodeJSON[UpdateMemberRequest](req)
	if err != nil {
		return nil, err
	}
	partial := store.Data{}
	if body.Status != nil {
		if *body.Status != MemberPending && *body.Status != MemberApproved {
			return nil, badRequest("status must be %q or %q", MemberPending, MemberApproved)
		}
		partial["status"] = *body.Status
	}
	if body.Role != nil {
		if *body.Role != RoleMember && *body.Role != RoleAdmin {
			return nil, badRequest("role must be %q or %q", RoleMember, RoleAdmin)
		}
		partial["role"] = *body.Role
	}
	if len(partial) == 0 {
		return nil, badRequest("nothing to update")
	}

	before, err := a.findMembership(ctx, name, member)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, notFound("%q is not a member of %q", member, name)
	}

	if err := a.store.UpdateLink(ctx, CollectionMemberships, name, member, partial); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("%q is not a member of %q", member, name)
		}
		return nil, err
	}

	if body.Status != nil && *body.Status == MemberApproved && before.Status != MemberApproved {
		a.addUpdate(ctx, member, Update{
			Type:    "approved",
			Actor:   req.User.Username,
			Message: fmt.Sprintf("your membership in %s was approved", name),
		})
	}

	a.audit.logUser(ctx, AuditMemberUpdated, req, member)
	after, err := a.findMembership(ctx, name, member)
	if err != nil {
		return nil, err
	}
	if after == nil {
		return nil, notFound("%q is not a member of %q", member, name)
	}
	info, err := a.memberInfo(ctx, member, after)
	if err != nil {
		return nil, err
	}
	return &Result{Body: info}, nil
}

// RemoveMember removes a membership. Admins can remove anyone; members can
// remove themselves (leave).
func (a *API) RemoveMember(ctx context.Context, req *Request) (*Result, error) {
	name := strings.ToLower(req.Params["groupName"])
	member := strings.ToLower(req.Params["username"])

	if req.User.Username != member {
		admin, err := a.isGroupAdmin(ctx, name, req.User.Username)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, forbidden("only group admins can remove other members")
		}
	}

	if err := a.store.DeleteLink(ctx, CollectionMemberships, name, member); err != nil {
		return nil, err
	}
	a.audit.logUser(ctx, AuditMemberRemoved, req, member)
	return &Result{Body: SuccessResponse{Success: true}}, nil
}
