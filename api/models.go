package api

import "time"

// Collections owned by the api package. The auth package owns users,
// profiles, auth records, and sessions.
const (
	// CollectionSubscriptions links publisher (parent) to subscriber (child).
	CollectionSubscriptions = "subscriptions"
	// CollectionGroups holds group documents keyed by group name.
	CollectionGroups = "groups"
	// CollectionMemberships links group name (parent) to member username (child).
	CollectionMemberships = "memberships"
	// CollectionUpdates links username (parent) to update ID (child).
	CollectionUpdates = "updates"
)

// Subscription statuses.
const (
	SubscriptionActive  = "active"
	SubscriptionPending = "pending"
)

// Membership statuses and roles.
const (
	MemberPending  = "pending"
	MemberApproved = "approved"

	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Group visibilities.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// ---------------------------------------------------------------------------
// Stored records
// ---------------------------------------------------------------------------

// Group is the stored group document, keyed by name.
type Group struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Visibility  string    `json:"visibility"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership is the payload on a group→member link.
type Membership struct {
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Subscription is the payload on a publisher→subscriber link.
type Subscription struct {
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Update is a feed entry, stored as the payload on a username→updateID link.
type Update struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// Wire shapes
// ---------------------------------------------------------------------------

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequestPinRequest asks for a sign-in PIN to be mailed.
type RequestPinRequest struct {
	Email string `json:"email"`
}

// RequestPinResponse reports whether the email needs signup. Pin is echoed
// only in skip-PIN mode; in production it travels by email alone.
type RequestPinResponse struct {
	Success        bool   `json:"success"`
	RequiresSignup bool   `json:"requiresSignup"`
	Pin            string `json:"pin,omitempty"`
}

// LoginRequest exchanges a verified PIN for a session.
type LoginRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

// SignupRequest creates an account and logs it in, in one step.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Pin      string `json:"pin"`
}

// SessionInfo is the client-visible session state.
type SessionInfo struct {
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionResponse is returned by login and signup alongside the cookie.
type SessionResponse struct {
	Success bool        `json:"success"`
	Session SessionInfo `json:"session"`
}

// MeResponse identifies the signed-in caller.
type MeResponse struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// SuccessResponse is the generic acknowledgement body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ProfileResponse is a profile plus whether an account backs it. Provisional
// profiles (created by add-by-email before signup) have HasAccount false.
type ProfileResponse struct {
	Username   string    `json:"username"`
	FullName   string    `json:"fullName"`
	Bio        string    `json:"bio,omitempty"`
	JoinedAt   time.Time `json:"joinedAt"`
	HasAccount bool      `json:"hasAccount"`
}

// UpdateProfileRequest carries the editable profile fields. Nil means
// leave unchanged.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// SubscriberInfo is one row in a subscriber or subscription list, enriched
// with the profile's display name.
type SubscriberInfo struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Status   string `json:"status"`
}

// AddSubscriberByEmailRequest adds a subscriber to the caller's own list by
// email address, provisioning a provisional profile when the email is unknown.
type AddSubscriberByEmailRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
}

// UpdateSubscriberRequest changes a subscription link's status.
type UpdateSubscriberRequest struct {
	Status string `json:"status"`
}

// CreateGroupRequest creates a new group; the caller becomes its admin.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
}

// GroupInfo is the client-visible group record.
type GroupInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Visibility  string    `json:"visibility"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GroupDetail is a group plus its approved member list.
type GroupDetail struct {
	GroupInfo
	Members []MemberInfo `json:"members"`
}

// MemberInfo is one row in a group's member list.
type MemberInfo struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// UpdateMemberRequest changes a membership's status and/or role. Nil means
// leave unchanged.
type UpdateMemberRequest struct {
	Status *string `json:"status,omitempty"`
	Role   *string `json:"role,omitempty"`
}

// UpdateInfo is one activity-feed entry.
type UpdateInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
