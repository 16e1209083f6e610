package bunrel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefineScopeErrors(t *testing.T) {
	store := setupLibrary(t)

	noop := func(records []*Record, _ ...any) ([]*Record, error) { return records, nil }

	require.NoError(t, store.DefineScope("videos", "noop", noop))
	require.ErrorIs(t, store.DefineScope("videos", "noop", noop), ErrDuplicateScope)
	require.ErrorIs(t, store.DefineScope("movies", "noop", noop), ErrUnknownKind)
}

func TestScopesDoNotMutateRecords(t *testing.T) {
	store := setupLibrary(t)
	seedVideos(t, store)

	require.NoError(t, store.DefineScopeExpr("videos", "short", "record.duration < 100"))

	_, err := store.Query("videos").Scope("short").Records()
	require.NoError(t, err)

	// The base set is untouched by scope application.
	all, err := store.All("videos")
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, int64(90), all[0].Int("duration"))
}

func TestScopeExprWithArgs(t *testing.T) {
	store := setupLibrary(t)
	seedVideos(t, store)

	require.NoError(t, store.DefineScopeExpr("videos", "between",
		"record.duration >= int(args[0]) && record.duration <= int(args[1])"))

	got, err := store.Query("videos").Scope("between", 90, 140).Records()
	require.NoError(t, err)
	require.Equal(t, []string{"Cat", "Dog", "Banana"}, names(got))
}

func TestScopeExprOnStringAttribute(t *testing.T) {
	store := setupLibrary(t)
	seedVideos(t, store)

	require.NoError(t, store.DefineScopeExpr("videos", "hosted_on",
		`record.engine == string(args[0])`))

	count, err := store.Query("videos").Scope("hosted_on", "dailymotion").Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestScopeExprCompileErrorAtDefinition(t *testing.T) {
	store := setupLibrary(t)

	err := store.DefineScopeExpr("videos", "broken", "record.duration >=")
	require.ErrorIs(t, err, ErrInvalidSchema)
}

func TestScopeExprMissingAttributeFailsEvaluation(t *testing.T) {
	store := setupLibrary(t)
	require.NoError(t, store.DefineScopeExpr("videos", "rated", "record.rating > 3"))

	_, err := store.Insert("videos", map[string]any{"name": "Cat"})
	require.NoError(t, err)

	_, err = store.Query("videos").Scope("rated").Records()
	require.Error(t, err)
}

func TestCustomScopeComposition(t *testing.T) {
	store := setupLibrary(t)
	seedVideos(t, store)

	require.NoError(t, store.DefineScope("videos", "by_engine",
		func(records []*Record, args ...any) ([]*Record, error) {
			return orderRecords(records, "engine", false), nil
		}))
	require.NoError(t, store.DefineScopeExpr("videos", "long", "record.duration >= 100"))

	// Left-to-right application: filter first, then order.
	got, err := store.Query("videos").Scope("long").Scope("by_engine").Records()
	require.NoError(t, err)
	require.Equal(t, []string{"Apple", "Banana", "Dog"}, names(got))
}
