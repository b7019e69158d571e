package btmdump

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/denismitr/btmdump/internal/archive"
	"github.com/denismitr/btmdump/internal/archive/archivetest"
	"github.com/denismitr/btmdump/internal/plist"
)

// item adds an ItemRecord whose string fields are interned table strings.
func item(b *archivetest.Builder, strs map[string]string, other plist.Dict) plist.UID {
	u := b.Reserve()
	fillItem(b, u, strs, other)
	return u
}

func fillItem(b *archivetest.Builder, u plist.UID, strs map[string]string, other plist.Dict) {
	fields := plist.Dict{}
	for k, v := range strs {
		fields[k] = b.String(v)
	}
	for k, v := range other {
		fields[k] = v
	}
	b.Fill(u, "ItemRecord", fields)
}

func v2Storage(b *archivetest.Builder, items ...plist.UID) *archivetest.Builder {
	return b.Root(b.Object("Storage", plist.Dict{"items": b.Set(items...)}))
}

// projectTree skips binary encoding and the class allowlist, for trees that
// binary plists or strict decoding would reject before projection.
func projectTree(t *testing.T, b *archivetest.Builder) (*Storage, error) {
	t.Helper()
	g, err := archive.Resolve(b.Tree())
	if err != nil {
		return nil, err
	}
	return project(g, nil)
}

func mustParse(t *testing.T, b *archivetest.Builder) *Storage {
	t.Helper()

	data, err := b.Bytes()
	require.NoError(t, err)

	res, err := Parse(data)
	require.NoError(t, err)
	require.NotNil(t, res.Storage)

	return res.Storage
}

func strp(s string) *string {
	return &s
}
