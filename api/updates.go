package api

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slowpost/slowpost/store"
)

// addUpdate appends an entry to a user's activity feed. Feed writes are
// best-effort: a failure is logged, never surfaced, because the triggering
// operation has already committed.
func (a *API) addUpdate(ctx context.Context, username string, update Update) {
	update.ID = uuid.NewString()
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	data, err := store.Encode(update)
	if err != nil {
		a.logger.ErrorContext(ctx, "encoding update failed", slog.Any("error", err))
		return
	}
	if err := a.store.AddLink(ctx, CollectionUpdates, username, update.ID, data); err != nil {
		a.logger.ErrorContext(ctx, "recording update failed",
			slog.String("username", username),
			slog.String("type", update.Type),
			slog.Any("error", err))
	}
}

// ListUpdates returns a user's activity feed, newest first.
func (a *API) ListUpdates(ctx context.Context, req *Request) (*Result, error) {
	username := strings.ToLower(req.Params["username"])
	links, err := a.store.GetChildLinks(ctx, CollectionUpdates, username)
	if err != nil {
		return nil, err
	}

	out := make([]UpdateInfo, 0, len(links))
	for _, link := range links {
		var update Update
		if err := store.Decode(link.Data, &update); err != nil {
			return nil, fmt.Errorf("decoding update: %w", err)
		}
		out = append(out, UpdateInfo{
			ID:        update.ID,
			Type:      update.Type,
			Actor:     update.Actor,
			Message:   update.Message,
			Timestamp: update.Timestamp,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return &Result{Body: out}, nil
}
