package tlv

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestLeaf(t *testing.T) {
	t.Run("bytes returns a copy", func(t *testing.T) {
		src := []byte("DEYYR001")
		leaf := NewLeaf(src)
		src[0] = 'X'

		b := leaf.Bytes()
		require.Equal(t, "DEYYR001", string(b))
		b[1] = 'Y'
		require.Equal(t, "DEYYR001", leaf.String())
		require.Equal(t, 8, leaf.Size())
	})

	t.Run("repeated reads are independent", func(t *testing.T) {
		leaf := NewLeaf([]byte("1234567"))
		for i := 0; i < 3; i++ {
			require.Equal(t, "1234567", leaf.String())
			require.Equal(t, []byte("1234567"), leaf.Bytes())
		}
	})

	t.Run("concurrent reads", func(t *testing.T) {
		tlv, _, err := Parse([]byte{0x04, 0x03, 'a', 'b', 'c'})
		require.NoError(t, err)
		leaf := tlv.Value().(Leaf)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if leaf.String() != "abc" {
						t.Error("unexpected leaf content")
						return
					}
				}
			}()
		}
		wg.Wait()
	})

	t.Run("text with explicit encoding", func(t *testing.T) {
		leaf := NewLeaf([]byte{'M', 0xFC, 'l', 'l', 'e', 'r'})
		s, err := leaf.Text(charmap.ISO8859_1)
		require.NoError(t, err)
		require.Equal(t, "Müller", s)

		again, err := leaf.Text(charmap.ISO8859_1)
		require.NoError(t, err)
		require.Equal(t, s, again)
	})

	t.Run("text without encoding", func(t *testing.T) {
		s, err := NewLeaf([]byte("DEYYR001")).Text(nil)
		require.NoError(t, err)
		require.Equal(t, "DEYYR001", s)
	})
}

func TestConstructed(t *testing.T) {
	a := mustNew(t, MustTag(55, ApplicationClass, false), NewLeaf([]byte{1, 2}))
	b := mustNew(t, MustTag(56, ApplicationClass, false), NewLeaf([]byte{3}))

	c := NewConstructed(a, b)
	require.Equal(t, 2, c.Len())
	require.Equal(t, a.Size()+b.Size(), c.Size())
	require.Equal(t, []byte{0x5F, 0x37, 0x02, 1, 2, 0x5F, 0x38, 0x01, 3}, c.Bytes())

	children := c.Children()
	require.Equal(t, uint32(55), children[0].Tag().Number())
	require.Equal(t, uint32(56), children[1].Tag().Number())

	children[0] = b
	require.Equal(t, uint32(55), c.Children()[0].Tag().Number())

	empty := NewConstructed()
	require.Equal(t, 0, empty.Size())
	require.Empty(t, empty.Bytes())
}
