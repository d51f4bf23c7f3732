package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowpost/slowpost/store"
	"github.com/slowpost/slowpost/store/memory"
)

func TestDocumentRoundTrip(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	got, err := st.GetDocument(ctx, "profiles", "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	data := store.Data{"username": "alice", "bio": "hello"}
	require.NoError(t, st.AddDocument(ctx, "profiles", "alice", data))

	got, err = st.GetDocument(ctx, "profiles", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, "hello", got["bio"])
}

func TestAddDocumentDuplicate(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.AddDocument(ctx, "profiles", "alice", store.Data{"a": 1}))
	err := st.AddDocument(ctx, "profiles", "alice", store.Data{"a": 2})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// Same key in another collection is fine.
	assert.NoError(t, st.AddDocument(ctx, "users", "alice", store.Data{"a": 3}))
}

func TestUpdateDocumentMergesShallow(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.AddDocument(ctx, "profiles", "alice",
		store.Data{"fullName": "Alice", "bio": "hi"}))
	require.NoError(t, st.UpdateDocument(ctx, "profiles", "alice",
		store.Data{"bio": "hello again"}))

	got, err := st.GetDocument(ctx, "profiles", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got["fullName"], "untouched field survives the merge")
	assert.Equal(t, "hello again", got["bio"])
}

func TestUpdateDocumentNotFound(t *testing.T) {
	st := memory.New()
	err := st.UpdateDocument(context.Background(), "profiles", "ghost", store.Data{"bio": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetAllDocuments(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.AddDocument(ctx, "groups", "b-team", store.Data{"n": 2}))
	require.NoError(t, st.AddDocument(ctx, "groups", "a-team", store.Data{"n": 1}))

	docs, err := st.GetAllDocuments(ctx, "groups")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a-team", docs[0].Key)
	assert.Equal(t, "b-team", docs[1].Key)
}

func TestLinkBothViews(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	payload := store.Data{"status": "active"}
	require.NoError(t, st.AddLink(ctx, "subscriptions", "alice", "bob", payload))

	children, err := st.GetChildLinks(ctx, "subscriptions", "alice")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "bob", children[0].ChildKey)
	assert.Equal(t, "active", children[0].Data["status"])

	parents, err := st.GetParentLinks(ctx, "subscriptions", "bob")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "alice", parents[0].ParentKey)

	require.NoError(t, st.DeleteLink(ctx, "subscriptions", "alice", "bob"))

	children, err = st.GetChildLinks(ctx, "subscriptions", "alice")
	require.NoError(t, err)
	assert.Empty(t, children)
	parents, err = st.GetParentLinks(ctx, "subscriptions", "bob")
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestAddLinkDuplicate(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.AddLink(ctx, "memberships", "book-club", "alice", store.Data{"status": "pending"}))
	err := st.AddLink(ctx, "memberships", "book-club", "alice", store.Data{"status": "approved"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestUpdateLinkMergesShallow(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.AddLink(ctx, "memberships", "book-club", "alice",
		store.Data{"role": "member", "status": "pending"}))
	require.NoError(t, st.UpdateLink(ctx, "memberships", "book-club", "alice",
		store.Data{"status": "approved"}))

	links, err := st.GetChildLinks(ctx, "memberships", "book-club")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "member", links[0].Data["role"])
	assert.Equal(t, "approved", links[0].Data["status"])

	err = st.UpdateLink(ctx, "memberships", "book-club", "ghost", store.Data{"status": "approved"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteLinkAbsentIsNoop(t *testing.T) {
	st := memory.New()
	assert.NoError(t, st.DeleteLink(context.Background(), "subscriptions", "alice", "nobody"))
}

func TestReadsAreIsolatedFromCallerMutation(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	data := store.Data{"bio": "original"}
	require.NoError(t, st.AddDocument(ctx, "profiles", "alice", data))
	data["bio"] = "mutated after insert"

	got, err := st.GetDocument(ctx, "profiles", "alice")
	require.NoError(t, err)
	assert.Equal(t, "original", got["bio"])

	got["bio"] = "mutated after read"
	again, err := st.GetDocument(ctx, "profiles", "alice")
	require.NoError(t, err)
	assert.Equal(t, "original", again["bio"])
}
