package btmdump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey_Less(t *testing.T) {
	tt := []struct {
		key1 string
		key2 string
		less bool
	}{
		{"com.apple.11", "com.apple.100", true},
		{"com.apple.1", "com.apple.999", true},
		{"com.apple.100", "com.apple.11", false},
		{"com.a", "com.b", true},
		{"com.c", "com.b", false},
		{"com.a.2", "com.b.1", true},
		{"com.a", "com.b.0", true},
		{"com", "com.apple", true},
		{"16.com.apple", "2.com.apple", false},
		{"com.apple.007", "com.apple.7", true},
		{"", "com", true},
		{"com.apple.xpc", "com.apple.xpc", false},
		{"com.x.1", "com.x.+1", true},
		{"com.x.+1", "com.x.1", false},
		{"com.x.8", "com.x.16", true},
		{"com.x.16", "com.x.1password", true},
		{"com.x.8", "com.x.1password", true},
		{"com.x.1password", "com.x.8", false},
		{"com.x.99999999999999999999", "com.x.100000000000000000000", true},
		{"com.x.", "com.x.0", true},
	}

	for _, tc := range tt {
		t.Run(tc.key1+"_"+tc.key2, func(t *testing.T) {
			a := newRecordKey(tc.key1, 1)
			b := newRecordKey(tc.key2, 1)

			assert.Equal(t, tc.less, a.Less(b))
		})
	}
}

func TestRecordKey_SameIdentifierOrdersByRef(t *testing.T) {
	a := newRecordKey("com.example", 3)
	b := newRecordKey("com.example", 7)

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.HasPrefix("com."))
}

func TestRecordKey_OrderIsTransitive(t *testing.T) {
	ids := []string{"com.x.8", "com.x.16", "com.x.1password", "com.x.+1", "com.x.1", "com.x.01", "com.x.", "com.x"}

	for _, a := range ids {
		for _, b := range ids {
			ka, kb := newRecordKey(a, 1), newRecordKey(b, 1)
			if a != b {
				assert.True(t, ka.Less(kb) != kb.Less(ka), "%q and %q must not tie", a, b)
			}
			for _, c := range ids {
				kc := newRecordKey(c, 1)
				if ka.Less(kb) && kb.Less(kc) {
					assert.True(t, ka.Less(kc), "%q < %q < %q", a, b, c)
				}
			}
		}
	}
}

func record(ref int, identifier *string) *ItemRecord {
	r := newItemRecord(ref)
	r.Identifier = identifier
	return r
}

func TestItemCollection(t *testing.T) {
	c := newItemCollection()
	twin1 := record(9, strp("com.example.twin"))
	twin2 := record(4, strp("com.example.twin"))
	anon := record(2, nil)

	c.add(record(5, strp("com.example.b")))
	c.add(twin1)
	c.add(twin2)
	c.add(record(7, strp("com.example.a")))
	c.add(anon)
	c.add(twin1)

	assert.Equal(t, 5, c.Len())
	assert.True(t, c.Contains(twin1))
	assert.False(t, c.Contains(record(9, strp("com.example.other"))))

	var ids []string
	for _, r := range c.Records() {
		ids = append(ids, r.IdentifierOrEmpty())
	}
	assert.Equal(t, []string{"", "com.example.a", "com.example.b", "com.example.twin", "com.example.twin"}, ids)

	got, ok := c.Get("com.example.twin")
	require.True(t, ok)
	assert.Equal(t, 4, got.Ref(), "lowest reference wins")

	_, ok = c.Get("com.example.c")
	assert.False(t, ok)

	var refs []int
	c.Descend(func(r *ItemRecord) bool {
		refs = append(refs, r.Ref())
		return len(refs) < 2
	})
	assert.Equal(t, []int{9, 4}, refs)
}

func TestItemCollection_NumericLookalikes(t *testing.T) {
	c := newItemCollection()
	plain := record(3, strp("com.x.1"))
	signed := record(5, strp("com.x.+1"))

	c.add(plain)
	c.add(signed)

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains(plain))
	assert.True(t, c.Contains(signed))

	got, ok := c.Get("com.x.+1")
	require.True(t, ok)
	assert.True(t, got == signed)
}

func TestItemCollection_AscendPrefix(t *testing.T) {
	c := newItemCollection()
	for i, id := range []string{"com.x.2", "com.x.1password", "com.x.10", "com.x.1", "com.y.1", "com.x"} {
		c.add(record(i, strp(id)))
	}

	var ids []string
	c.AscendPrefix("com.x.1", func(r *ItemRecord) bool {
		ids = append(ids, r.IdentifierOrEmpty())
		return true
	})
	assert.Equal(t, []string{"com.x.1", "com.x.10", "com.x.1password"}, ids)

	ids = nil
	c.AscendPrefix("com.x.", func(r *ItemRecord) bool {
		ids = append(ids, r.IdentifierOrEmpty())
		return len(ids) < 2
	})
	assert.Equal(t, []string{"com.x.1", "com.x.2"}, ids)
}

func TestItemCollection_Nil(t *testing.T) {
	var c *ItemCollection

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Records())
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.False(t, c.Contains(record(1, nil)))
}
