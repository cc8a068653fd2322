package program

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionDefaultName(t *testing.T) {
	fm := newFunctionManager()
	f, err := fm.CreateFunction("", 0x71000001a4, SourceImported)
	require.NoError(t, err)
	require.Equal(t, "FUN_71000001a4", f.Name())
	require.Equal(t, SourceDefault, f.Source())

	f.SetName("memcpy", SourceImported)
	require.Equal(t, "memcpy", f.Name())
	require.Equal(t, SourceImported, f.Source())

	f.RevertNameToDefault()
	require.Equal(t, "FUN_71000001a4", f.Name())
	require.Equal(t, SourceDefault, f.Source())
}

func TestCreateFunctionDuplicate(t *testing.T) {
	fm := newFunctionManager()
	_, err := fm.CreateFunction("a", 0x100, SourceImported)
	require.NoError(t, err)
	_, err = fm.CreateFunction("b", 0x100, SourceImported)
	require.ErrorIs(t, err, ErrFunctionExists)
	require.Equal(t, 1, fm.Count())

	_, err = fm.CreateFunction("bad name", 0x200, SourceImported)
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestFunctionsIteratorSorted(t *testing.T) {
	fm := newFunctionManager()
	for _, addr := range []uint64{0x300, 0x100, 0x200} {
		_, err := fm.CreateFunction("", addr, SourceDefault)
		require.NoError(t, err)
	}
	var got []uint64
	fm.Functions(func(f *Function) bool {
		got = append(got, f.Entry)
		return true
	})
	require.Equal(t, []uint64{0x100, 0x200, 0x300}, got)
}

func TestFunctionThunk(t *testing.T) {
	em := newExternalManager()
	fm := newFunctionManager()
	f, err := fm.CreateFunction("", 0x100, SourceDefault)
	require.NoError(t, err)
	require.False(t, f.IsThunk())
	require.Nil(t, f.ThunkedFunction())

	ext, err := em.AddFunction(UnknownLibrary, "malloc", SourceImported)
	require.NoError(t, err)
	f.SetThunk(ext)
	require.True(t, f.IsThunk())
	require.Same(t, ext, f.ThunkedFunction())
}

func TestExternalManager(t *testing.T) {
	em := newExternalManager()
	require.NoError(t, em.SetExternalPath("libc.so"))
	require.NoError(t, em.SetExternalPath("libnx.so"))
	require.NoError(t, em.SetExternalPath("libc.so"))
	require.Equal(t, []string{"libc.so", "libnx.so"}, em.Libraries())
	require.ErrorIs(t, em.SetExternalPath("bad name"), ErrInvalidName)

	a, err := em.AddFunction(UnknownLibrary, "malloc", SourceImported)
	require.NoError(t, err)
	b, err := em.AddFunction(UnknownLibrary, "malloc", SourceImported)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, 1, em.FunctionCount())

	// Same name in another namespace is distinct.
	c, err := em.AddFunction("libc.so", "malloc", SourceImported)
	require.NoError(t, err)
	require.NotSame(t, a, c)
	require.Same(t, c, em.Function("libc.so", "malloc"))
	require.Nil(t, em.Function("libc.so", "free"))
}
