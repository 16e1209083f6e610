package bunrel

import (
	"errors"
	"testing"
)

// setupLibrary defines the kinds and associations used across association
// tests: videos belong to a channel, playlists reach videos through likes.
func setupLibrary(t *testing.T) *Store {
	t.Helper()
	store := newTestStore(t)

	kinds := map[string]Schema{
		"channels": {
			"name": {Type: String, Required: true},
		},
		"videos": {
			"name":       {Type: String, Required: true},
			"engine":     {Type: String},
			"duration":   {Type: Int},
			"channel_id": {Type: Int},
		},
		"playlists": {
			"name": {Type: String, Required: true},
		},
		"likes": {
			"playlist_id": {Type: Int, Required: true},
			"video_id":    {Type: Int, Required: true},
		},
	}
	for name, schema := range kinds {
		if err := store.DefineKind(name, schema); err != nil {
			t.Fatalf("Failed to define kind %s: %v", name, err)
		}
	}

	assocs := []struct {
		kind, name string
		spec       Association
	}{
		{"videos", "channel", Association{Kind: HasOne, Target: "channels", ForeignKey: "channel_id"}},
		{"channels", "videos", Association{Kind: HasMany, Target: "videos", ForeignKey: "channel_id"}},
		{"playlists", "videos", Association{
			Kind: HasManyThrough, Target: "videos",
			Through: "likes", SourceKey: "playlist_id", TargetKey: "video_id",
		}},
	}
	for _, a := range assocs {
		if err := store.DefineAssociation(a.kind, a.name, a.spec); err != nil {
			t.Fatalf("Failed to define association %s.%s: %v", a.kind, a.name, err)
		}
	}
	return store
}

func insertNamed(t *testing.T, store *Store, kind, name string) *Record {
	t.Helper()
	rec, err := store.Insert(kind, map[string]any{"name": name})
	if err != nil {
		t.Fatalf("Insert %s failed: %v", kind, err)
	}
	return rec
}

func TestDefineAssociationErrors(t *testing.T) {
	store := setupLibrary(t)

	err := store.DefineAssociation("videos", "channel", Association{
		Kind: HasOne, Target: "channels", ForeignKey: "channel_id",
	})
	if !errors.Is(err, ErrDuplicateAssociation) {
		t.Errorf("Expected ErrDuplicateAssociation, got %v", err)
	}

	err = store.DefineAssociation("videos", "owner", Association{
		Kind: HasOne, Target: "channels", ForeignKey: "owner_id",
	})
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Expected ErrUnknownAttribute for missing foreign key, got %v", err)
	}

	err = store.DefineAssociation("movies", "channel", Association{
		Kind: HasOne, Target: "channels", ForeignKey: "channel_id",
	})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}

	err = store.DefineAssociation("playlists", "half", Association{
		Kind: HasManyThrough, Target: "videos", Through: "likes",
	})
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("Expected ErrInvalidSchema for missing join keys, got %v", err)
	}
}

func TestHasOneSetAndResolve(t *testing.T) {
	store := setupLibrary(t)

	channel := insertNamed(t, store, "channels", "nature")
	video := insertNamed(t, store, "videos", "Cat")

	// Unset key resolves to nothing, not an error
	opt, err := store.ResolveOne(video, "channel")
	if err != nil {
		t.Fatalf("ResolveOne failed: %v", err)
	}
	if opt.IsPresent() {
		t.Error("Expected empty option before assignment")
	}

	if err := store.SetOne(video, "channel", channel); err != nil {
		t.Fatalf("SetOne failed: %v", err)
	}

	// The write is visible immediately on the stored record
	stored, _ := store.Get("videos", video.ID())
	if stored.Int("channel_id") != int64(channel.ID()) {
		t.Errorf("Expected channel_id %d, got %d", channel.ID(), stored.Int("channel_id"))
	}

	opt, err = store.ResolveOne(video, "channel")
	if err != nil {
		t.Fatalf("ResolveOne failed: %v", err)
	}
	got, ok := opt.Get()
	if !ok || got.ID() != channel.ID() {
		t.Errorf("Expected channel %d, got %v", channel.ID(), got)
	}

	// Clearing the association removes the key
	if err := store.SetOne(video, "channel", nil); err != nil {
		t.Fatalf("SetOne(nil) failed: %v", err)
	}
	opt, _ = store.ResolveOne(video, "channel")
	if opt.IsPresent() {
		t.Error("Expected empty option after clearing")
	}
}

func TestHasOneKindMismatch(t *testing.T) {
	store := setupLibrary(t)

	video := insertNamed(t, store, "videos", "Cat")
	playlist := insertNamed(t, store, "playlists", "Animals")

	err := store.SetOne(video, "channel", playlist)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for wrong target kind, got %v", err)
	}
}

func TestHasOneDanglingKeyIsNotFound(t *testing.T) {
	store := setupLibrary(t)

	video, err := store.Insert("videos", map[string]any{"name": "Cat", "channel_id": 99})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, err = store.ResolveOne(video, "channel")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for dangling key, got %v", err)
	}
}

func TestHasManyResolvesInInsertionOrder(t *testing.T) {
	store := setupLibrary(t)

	channel := insertNamed(t, store, "channels", "nature")
	other := insertNamed(t, store, "channels", "food")

	names := []string{"Cat", "Dog", "Owl"}
	for _, n := range names {
		v := insertNamed(t, store, "videos", n)
		if err := store.SetOne(v, "channel", channel); err != nil {
			t.Fatalf("SetOne failed: %v", err)
		}
	}
	banana := insertNamed(t, store, "videos", "Banana")
	if err := store.SetOne(banana, "channel", other); err != nil {
		t.Fatalf("SetOne failed: %v", err)
	}

	videos, err := store.Resolve(channel, "videos")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(videos) != len(names) {
		t.Fatalf("Expected %d videos, got %d", len(names), len(videos))
	}
	for i, n := range names {
		if videos[i].String("name") != n {
			t.Errorf("Position %d: expected %s, got %s", i, n, videos[i].String("name"))
		}
	}
}

func TestHasManyThroughAppend(t *testing.T) {
	store := setupLibrary(t)

	playlist := insertNamed(t, store, "playlists", "Animals")
	cat := insertNamed(t, store, "videos", "Cat")
	dog := insertNamed(t, store, "videos", "Dog")

	joins, err := store.Append(playlist, "videos", cat, dog)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(joins) != 2 {
		t.Fatalf("Expected 2 join records, got %d", len(joins))
	}

	videos, err := store.Resolve(playlist, "videos")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(videos) != 2 || videos[0].ID() != cat.ID() || videos[1].ID() != dog.ID() {
		t.Errorf("Expected [Cat Dog] in append order, got %v", videos)
	}
}

func TestHasManyThroughKeepsDuplicates(t *testing.T) {
	store := setupLibrary(t)

	playlist := insertNamed(t, store, "playlists", "Animals")
	cat := insertNamed(t, store, "videos", "Cat")

	// Appending the same video twice creates two join records; resolution
	// reports the target twice.
	if _, err := store.Append(playlist, "videos", cat); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := store.Append(playlist, "videos", cat); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	videos, err := store.Resolve(playlist, "videos")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("Expected duplicate to be kept, got %d videos", len(videos))
	}

	likes, _ := store.Count("likes")
	if likes != 2 {
		t.Errorf("Expected 2 join records, got %d", likes)
	}
}

func TestAppendGrowsCollectionByAppendedCount(t *testing.T) {
	store := setupLibrary(t)

	playlist := insertNamed(t, store, "playlists", "Mixed")
	var videos []*Record
	for _, n := range []string{"a", "b", "c"} {
		videos = append(videos, insertNamed(t, store, "videos", n))
	}

	before, _ := store.Resolve(playlist, "videos")
	if _, err := store.Append(playlist, "videos", videos...); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	after, err := store.Resolve(playlist, "videos")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(after)-len(before) != len(videos) {
		t.Errorf("Expected collection to grow by %d, grew by %d", len(videos), len(after)-len(before))
	}
}

func TestResolveUnknownAssociation(t *testing.T) {
	store := setupLibrary(t)
	video := insertNamed(t, store, "videos", "Cat")

	_, err := store.Resolve(video, "tags")
	if !errors.Is(err, ErrUnknownAssociation) {
		t.Errorf("Expected ErrUnknownAssociation, got %v", err)
	}
}
