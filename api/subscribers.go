package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/internal/util"
	"github.com/slowpost/slowpost/store"
)

// subscriberInfo builds a list row for a username, falling back to the bare
// username when the profile is missing.
func (a *API) subscriberInfo(ctx context.Context, username, status string) (SubscriberInfo, error) {
	info := SubscriberInfo{Username: username, FullName: username, Status: status}
	profile, err := a.loadProfile(ctx, username)
	if err != nil {
		return info, err
	}
	if profile != nil && profile.FullName != "" {
		info.FullName = profile.FullName
	}
	return info, nil
}

// ListSubscribers returns who subscribes to a username.
func (a *API) ListSubscribers(ctx context.Context, req *Request) (*Result, error) {
	username := strings.ToLower(req.Params["username"])
	links, err := a.store.GetChildLinks(ctx, CollectionSubscriptions, username)
	if err != nil {
		return nil, err
	}
	out := make([]SubscriberInfo, 0, len(links))
	for _, link := range links {
		var sub Subscription
		if err := store.Decode(link.Data, &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription: %w", err)
		}
		info, err := a.subscriberInfo(ctx, link.ChildKey, sub.Status)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return &Result{Body: out}, nil
}

// ListSubscriptions returns who a username subscribes to.
func (a *API) ListSubscriptions(ctx context.Context, req *Request) (*Result, error) {
	username := strings.ToLower(req.Params["username"])
	links, err := a.store.GetParentLinks(ctx, CollectionSubscriptions, username)
	if err != nil {
		return nil, err
	}
	out := make([]SubscriberInfo, 0, len(links))
	for _, link := range links {
		var sub Subscription
		if err := store.Decode(link.Data, &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription: %w", err)
		}
		info, err := a.subscriberInfo(ctx, link.ParentKey, sub.Status)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return &Result{Body: out}, nil
}

// Subscribe adds the caller as an active subscriber of :username.
func (a *API) Subscribe(ctx context.Context, req *Request) (*Result, error) {
	publisher := strings.ToLower(req.Params["username"])
	subscriber := req.User.Username
	if publisher == subscriber {
		return nil, badRequest("you cannot subscribe to yourself")
	}

	profile, err := a.loadProfile(ctx, publisher)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, notFound("profile %q not found", publisher)
	}

	sub := Subscription{Status: SubscriptionActive, CreatedAt: time.Now().UTC()}
	data, err := store.Encode(sub)
	if err != nil {
		return nil, err
	}
	// The store's uniqueness constraint is authoritative; two racing
	// subscribes resolve to one link and one conflict.
	if err := a.store.AddLink(ctx, CollectionSubscriptions, publisher, subscriber, data); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("already subscribed to %q", publisher)
		}
		return nil, err
	}

	a.addUpdate(ctx, publisher, Update{
		Type:    "new_subscriber",
		Actor:   subscriber,
		Message: fmt.Sprintf("%s subscribed to you", subscriber),
	})
	a.audit.logUser(ctx, AuditSubscribed, req, subscriber)

	info, err := a.subscriberInfo(ctx, subscriber, sub.Status)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusCreated, Body: info}, nil
}

// AddSubscriberByEmail adds a subscriber to the caller's own list by email,
// provisioning a provisional profile when the address is unknown. The new
// subscription is pending until the subscriber confirms it.
func (a *API) AddSubscriberByEmail(ctx context.Context, req *Request) (*Result, error) {
	owner := strings.ToLower(req.Params["username"])
	if req.User.Username != owner {
		return nil, forbidden("you can only add subscribers to your own list")
	}

	body, err := decodeJSON[AddSubscriberByEmailRequest](req)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(body.Email)
	if err != nil {
		return nil, err
	}

	subscriber, err := a.resolveOrProvisionProfile(ctx, email, body.FullName)
	if err != nil {
		return nil, err
	}
	if subscriber == owner {
		return nil, badRequest("you cannot subscribe to yourself")
	}

	sub := Subscription{Status: SubscriptionPending, CreatedAt: time.Now().UTC()}
	data, err := store.Encode(sub)
	if err != nil {
		return nil, err
	}
	if err := a.store.AddLink(ctx, CollectionSubscriptions, owner, subscriber, data); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("%q is already a subscriber", subscriber)
		}
		return nil, err
	}
	a.audit.logUser(ctx, AuditSubscriberAdded, req, owner)

	info, err := a.subscriberInfo(ctx, subscriber, sub.Status)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusCreated, Body: info}, nil
}

// resolveOrProvisionProfile maps an email to a username, creating a
// provisional profile (no account) when the email is unknown.
func (a *API) resolveOrProvisionProfile(ctx context.Context, email, fullName string) (string, error) {
	userData, err := a.store.GetDocument(ctx, auth.CollectionUsers, email)
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}
	if userData != nil {
		var user auth.User
		if err := store.Decode(userData, &user); err != nil {
			return "", fmt.Errorf("decoding user: %w", err)
		}
		return user.Username, nil
	}

	if fullName == "" {
		fullName = usernameFromEmail(email)
	}
	username := usernameFromEmail(email)
	if len(username) < 2 {
		suffix, err := util.RandomDigits(4)
		if err != nil {
			return "", err
		}
		username = "user" + suffix
	}

	for attempt := 0; ; attempt++ {
		profile := auth.Profile{
			Username: username,
			FullName: fullName,
			Email:    email,
			JoinedAt: time.Now().UTC(),
		}
		data, err := store.Encode(profile)
		if err != nil {
			return "", err
		}
		err = a.store.AddDocument(ctx, auth.CollectionProfiles, username, data)
		if err == nil {
			return username, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return "", fmt.Errorf("provisioning profile: %w", err)
		}
		// Username collision with someone else's profile; is it already
		// this email's provisional profile?
		existing, loadErr := a.loadProfile(ctx, username)
		if loadErr != nil {
			return "", loadErr
		}
		if existing != nil && existing.Email == email {
			return username, nil
		}
		if attempt >= 5 {
			return "", fmt.Errorf("provisioning profile: %w", store.ErrDuplicate)
		}
		suffix, err := util.RandomDigits(4)
		if err != nil {
			return "", err
		}
		username = usernameFromEmail(email)
		if len(username) > 25 {
			username = username[:25]
		}
		if len(username) < 2 {
			username = "user"
		}
		username = username + "-" + suffix
	}
}

// UpdateSubscriber changes a subscription link's status. Owner only.
func (a *API) UpdateSubscriber(ctx context.Context, req *Request) (*Result, error) {
	owner := strings.ToLower(req.Params["username"])
	subscriber := strings.ToLower(req.Params["subscriberUsername"])
	if req.User.Username != owner {
		return nil, forbidden("you can only manage your own subscribers")
	}

	body, err := decodeJSON[UpdateSubscriberRequest](req)
	if err != nil {
		return nil, err
	}
	if body.Status != SubscriptionActive && body.Status != SubscriptionPending {
		return nil, badRequest("status must be %q or %q", SubscriptionActive, SubscriptionPending)
	}

	partial := store.Data{"status": body.Status}
	if err := a.store.UpdateLink(ctx, CollectionSubscriptions, owner, subscriber, partial); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("%q is not a subscriber of %q", subscriber, owner)
		}
		return nil, err
	}

	info, err := a.subscriberInfo(ctx, subscriber, body.Status)
	if err != nil {
		return nil, err
	}
	return &Result{Body: info}, nil
}

// RemoveSubscriber deletes a subscription link. The list owner or the
// subscriber themself may remove it; a link that is already gone is fine.
func (a *API) RemoveSubscriber(ctx context.Context, req *Request) (*Result, error) {
	owner := strings.ToLower(req.Params["username"])
	subscriber := strings.ToLower(req.Params["subscriberUsername"])
	if req.User.Username != owner && req.User.Username != subscriber {
		return nil, forbidden("you can only remove your own subscriptions or subscribers")
	}

	if err := a.store.DeleteLink(ctx, CollectionSubscriptions, owner, subscriber); err != nil {
		return nil, err
	}
	a.audit.logUser(ctx, AuditSubscriberRemoved, req, req.User.Username)
	return &Result{Body: SuccessResponse{Success: true}}, nil
}
