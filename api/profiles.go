package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/store"
)

// loadProfile fetches a profile document, returning (nil, nil) when absent.
func (a *API) loadProfile(ctx context.Context, username string) (*auth.Profile, error) {
	data, err := a.store.GetDocument(ctx, auth.CollectionProfiles, username)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var profile auth.Profile
	if err := store.Decode(data, &profile); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &profile, nil
}

// hasAccount reports whether a User document backs the profile's email.
// Provisional profiles created by add-by-email have none until signup.
func (a *API) hasAccount(ctx context.Context, profile *auth.Profile) (bool, error) {
	if profile.Email == "" {
		return false, nil
	}
	data, err := a.store.GetDocument(ctx, auth.CollectionUsers, profile.Email)
	if err != nil {
		return false, fmt.Errorf("loading user: %w", err)
	}
	return data != nil, nil
}

func (a *API) profileResponse(ctx context.Context, profile *auth.Profile) (*ProfileResponse, error) {
	backed, err := a.hasAccount(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		Username:   profile.Username,
		FullName:   profile.FullName,
		Bio:        profile.Bio,
		JoinedAt:   profile.JoinedAt,
		HasAccount: backed,
	}, nil
}

// GetProfile returns the public profile for a username. The email behind
// the profile is never exposed.
func (a *API) GetProfile(ctx context.Context, req *Request) (*Result, error) {
	username := strings.ToLower(req.Params["username"])
	profile, err := a.loadProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, notFound("profile %q not found", username)
	}
	resp, err := a.profileResponse(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &Result{Body: resp}, nil
}

// UpdateProfile merges the editable fields into the caller's own profile.
func (a *API) UpdateProfile(ctx context.Context, req *Request) (*Result, error) {
	username := strings.ToLower(req.Params["username"])
	if req.User.Username != username {
		return nil, forbidden("you can only edit your own profile")
	}

	body, err := decodeJSON[UpdateProfileRequest](req)
	if err != nil {
		return nil, err
	}
	partial := store.Data{}
	if body.FullName != nil {
		if *body.FullName == "" {
			return nil, badRequest("fullName cannot be empty")
		}
		partial["fullName"] = *body.FullName
	}
	if body.Bio != nil {
		partial["bio"] = *body.Bio
	}
	if len(partial) == 0 {
		return nil, badRequest("nothing to update")
	}

	if err := a.store.UpdateDocument(ctx, auth.CollectionProfiles, username, partial); err != nil {
		return nil, err
	}

	profile, err := a.loadProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, notFound("profile %q not found", username)
	}

	// Keep the user record's display name in step with the profile.
	if body.FullName != nil && profile.Email != "" {
		err := a.store.UpdateDocument(ctx, auth.CollectionUsers, profile.Email,
			store.Data{"fullName": *body.FullName})
		if err != nil {
			return nil, fmt.Errorf("syncing user name: %w", err)
		}
	}

	a.audit.logUser(ctx, AuditProfileUpdated, req, username)
	resp, err := a.profileResponse(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &Result{Body: resp}, nil
}
