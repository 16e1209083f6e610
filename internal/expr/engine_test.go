package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalPredicate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	record := map[string]any{"duration": int64(120), "engine": "youtube"}

	ok, err := engine.Eval("record.duration >= 100", record, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Eval("record.duration >= 100", map[string]any{"duration": int64(30)}, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvalWithArgs(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	record := map[string]any{"engine": "vimeo"}

	ok, err := engine.Eval(`record.engine == string(args[0])`, record, []any{"vimeo"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.Eval(`record.engine == string(args[0])`, record, []any{"youtube"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompileError(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	require.Error(t, engine.Compile("record.duration >="))
	require.NoError(t, engine.Compile("record.duration >= 1"))
}

func TestNonBooleanPredicate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	_, err = engine.Eval("record.duration + 1", map[string]any{"duration": int64(1)}, nil)
	require.Error(t, err)
}

func TestProgramCacheReuse(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	const expr = "record.duration >= 100"
	require.NoError(t, engine.Compile(expr))

	// Second evaluation hits the cached program.
	for i := 0; i < 2; i++ {
		ok, err := engine.Eval(expr, map[string]any{"duration": int64(150)}, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
}
