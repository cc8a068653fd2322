package program

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateLabelFirstIsPrimary(t *testing.T) {
	st := newSymbolTable()
	a, err := st.CreateLabel(0x100, "first", SourceImported)
	require.NoError(t, err)
	require.True(t, a.Primary)

	b, err := st.CreateLabel(0x100, "second", SourceImported)
	require.NoError(t, err)
	require.False(t, b.Primary)
	require.Same(t, a, st.PrimaryAt(0x100))
	require.Len(t, st.At(0x100), 2)
}

func TestCreateLabelDedup(t *testing.T) {
	st := newSymbolTable()
	a, err := st.CreateLabel(0x100, "dup", SourceImported)
	require.NoError(t, err)
	b, err := st.CreateLabel(0x100, "dup", SourceImported)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Len(t, st.At(0x100), 1)

	// Same name from another source is a distinct label.
	c, err := st.CreateLabel(0x100, "dup", SourceAnalysis)
	require.NoError(t, err)
	require.NotSame(t, a, c)
	require.Len(t, st.At(0x100), 2)
}

func TestCreateLabelInvalidNames(t *testing.T) {
	st := newSymbolTable()
	for _, name := range []string{"", "has space", "tab\tname", "ctl\x01"} {
		_, err := st.CreateLabel(0x100, name, SourceImported)
		require.ErrorIs(t, err, ErrInvalidName, "%q", name)
	}
	_, err := st.CreateLabel(0x100, "_ZN3fooD1Ev", SourceImported)
	require.NoError(t, err)
}

func TestSetPrimaryRules(t *testing.T) {
	t.Run("versioned never promoted", func(t *testing.T) {
		st := newSymbolTable()
		base, _ := st.CreateLabel(0x100, "plain", SourceImported)
		ver, _ := st.CreateLabel(0x100, "plain@GLIBC_2.17", SourceImported)
		require.False(t, st.SetPrimary(ver))
		require.Same(t, base, st.PrimaryAt(0x100))
	})

	t.Run("markup never promoted", func(t *testing.T) {
		st := newSymbolTable()
		base, _ := st.CreateLabel(0x100, "plain", SourceImported)
		markup, _ := st.CreateLabel(0x100, "$x", SourceImported)
		require.False(t, st.SetPrimary(markup))
		require.Same(t, base, st.PrimaryAt(0x100))
	})

	t.Run("non-letter does not displace letter", func(t *testing.T) {
		st := newSymbolTable()
		base, _ := st.CreateLabel(0x100, "memcpy", SourceImported)
		odd, _ := st.CreateLabel(0x100, "0cold", SourceImported)
		require.False(t, st.SetPrimary(odd))
		require.Same(t, base, st.PrimaryAt(0x100))
	})

	t.Run("letter displaces non-letter", func(t *testing.T) {
		st := newSymbolTable()
		odd, _ := st.CreateLabel(0x100, "0cold", SourceImported)
		base, _ := st.CreateLabel(0x100, "memcpy", SourceImported)
		require.True(t, st.SetPrimary(base))
		require.Same(t, base, st.PrimaryAt(0x100))
		require.False(t, odd.Primary)
	})

	t.Run("non-letter displaces default-source primary", func(t *testing.T) {
		st := newSymbolTable()
		def, _ := st.CreateLabel(0x100, "placeholder", SourceDefault)
		odd, _ := st.CreateLabel(0x100, "0cold", SourceImported)
		require.True(t, st.SetPrimary(odd))
		require.Same(t, odd, st.PrimaryAt(0x100))
		require.False(t, def.Primary)
	})
}

func TestRemoveLabelPromotesOldest(t *testing.T) {
	st := newSymbolTable()
	a, _ := st.CreateLabel(0x100, "a", SourceImported)
	b, _ := st.CreateLabel(0x100, "b", SourceImported)
	c, _ := st.CreateLabel(0x100, "c", SourceImported)

	st.RemoveLabel(a)
	require.Same(t, b, st.PrimaryAt(0x100))
	require.Len(t, st.At(0x100), 2)

	st.RemoveLabel(b)
	st.RemoveLabel(c)
	require.Empty(t, st.At(0x100))
	require.Nil(t, st.PrimaryAt(0x100))
}

func TestEntryPoints(t *testing.T) {
	st := newSymbolTable()
	st.AddExternalEntryPoint(0x300)
	st.AddExternalEntryPoint(0x100)
	st.AddExternalEntryPoint(0x300)
	require.True(t, st.IsExternalEntryPoint(0x100))
	require.False(t, st.IsExternalEntryPoint(0x200))
	require.Equal(t, []uint64{0x100, 0x300}, st.EntryPoints())
}

func TestSymbolsIterator(t *testing.T) {
	st := newSymbolTable()
	st.CreateLabel(0x100, "a", SourceImported)
	st.CreateLabel(0x200, "b", SourceImported)
	var n int
	st.Symbols(func(*Symbol) bool {
		n++
		return true
	})
	require.Equal(t, 2, n)

	n = 0
	st.Symbols(func(*Symbol) bool {
		n++
		return false
	})
	require.Equal(t, 1, n)
}
