package btmdump

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denismitr/btmdump/internal/archive/archivetest"
	"github.com/denismitr/btmdump/internal/plist"
	"github.com/denismitr/btmdump/options"
)

func singleAgent(t *testing.T) *Storage {
	b := archivetest.New()
	v2Storage(b, item(b, map[string]string{
		"identifier":       "com.example.agent",
		"bundleIdentifier": "com.example.app",
	}, plist.Dict{"embeddedItems": b.Set()}))
	return mustParse(t, b)
}

func richStorage(t *testing.T) *Storage {
	b := archivetest.New()
	raw := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}

	helper := item(b, map[string]string{"identifier": "com.example.app.helper", "name": "Helper"},
		plist.Dict{"type": plist.Integer(8)})
	app := item(b, map[string]string{
		"identifier":     "2.com.example.app",
		"name":           "Example",
		"developerName":  "Example Inc",
		"teamIdentifier": "ABCDE12345",
	}, plist.Dict{
		"type":                        plist.Integer(2),
		"disposition":                 plist.Integer(11),
		"url":                         b.URL("file:///Applications/Example.app/"),
		"uuid":                        b.UUID(raw),
		"bookmark":                    b.Data([]byte("bookmark-bytes")),
		"associatedBundleIdentifiers": b.Array(b.String("com.example.other")),
		"embeddedItems":               b.Set(helper),
	})
	return mustParse(t, v2Storage(b, app))
}

func TestToMapping_SingleAgent(t *testing.T) {
	s := singleAgent(t)

	b, err := json.Marshal(ToMapping(s))
	require.NoError(t, err)

	assert.Equal(t,
		`{"version":2,"itemsByOwner":{"*":{"items":[{"identifier":"com.example.agent","bundleIdentifier":"com.example.app"}]}}}`,
		string(b))
}

func TestToText_SingleAgent(t *testing.T) {
	s := singleAgent(t)

	assert.Equal(t, []string{
		"version: 2",
		"owner: *",
		"  item:",
		"    identifier: com.example.agent",
		"    bundleIdentifier: com.example.app",
	}, slices.Collect(ToText(s)))
}

func TestToText_IsRestartable(t *testing.T) {
	lines := ToText(richStorage(t))

	first := slices.Collect(lines)
	second := slices.Collect(lines)
	assert.Equal(t, first, second)
	assert.True(t, len(first) > 10)

	var taken []string
	for l := range lines {
		taken = append(taken, l)
		if len(taken) == 3 {
			break
		}
	}
	assert.Equal(t, first[:3], taken)
}

func TestFormatters_DescribeTheSameRecord(t *testing.T) {
	s := richStorage(t)

	doc, err := (&Result{Storage: s}).Document()
	require.NoError(t, err)

	var checked int
	for l := range ToText(s) {
		// top-level record scalars sit at depth two
		if !strings.HasPrefix(l, "    ") || strings.HasPrefix(l, "     ") {
			continue
		}

		name, value, ok := strings.Cut(strings.TrimSpace(l), ": ")
		if !ok {
			continue
		}

		path := `itemsByOwner.\*.items.0.` + name
		if strings.HasPrefix(value, "<") {
			length := doc.IntOrDefault(path+".length", -1)
			digest := doc.StringOrDefault(path+".xxhash64", "")
			assert.Equal(t, fmt.Sprintf("<%d bytes, xxhash64 %s>", length, digest), value, name)
		} else {
			got, err := doc.String(path)
			require.NoError(t, err, name)
			assert.Equal(t, value, got, name)
		}
		checked++
	}

	assert.Equal(t, 9, checked)

	n, err := doc.Count(`itemsByOwner.\*.items.0.embeddedItems`)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Helper", doc.StringOrDefault(`itemsByOwner.\*.items.0.embeddedItems.0.name`, ""))
	assert.Equal(t, "com.example.other", doc.StringOrDefault(`itemsByOwner.\*.items.0.associatedBundleIdentifiers.0`, ""))
	assert.Equal(t, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", doc.StringOrDefault(`itemsByOwner.\*.items.0.uuid`, ""))
}

func TestToText_Nesting(t *testing.T) {
	lines := slices.Collect(ToText(richStorage(t)))

	assert.Contains(t, lines, "    embeddedItems:")
	assert.Contains(t, lines, "      item:")
	assert.Contains(t, lines, "        identifier: com.example.app.helper")
	assert.Contains(t, lines, "        type: 8")
	assert.Contains(t, lines, "    associatedBundleIdentifiers:")
	assert.Contains(t, lines, "      - com.example.other")
}

func TestFormatters_BackReferences(t *testing.T) {
	b := archivetest.New()
	a := b.Reserve()
	c := b.Reserve()
	fillItem(b, a, map[string]string{"identifier": "com.example.a"}, plist.Dict{"embeddedItems": b.Set(c)})
	fillItem(b, c, map[string]string{"identifier": "com.example.b"}, plist.Dict{"embeddedItems": b.Set(a)})
	s := mustParse(t, v2Storage(b, a))

	doc, err := (&Result{Storage: s}).Document()
	require.NoError(t, err)

	base := `itemsByOwner.\*.items.0.embeddedItems.0.backReferences.0`
	assert.Equal(t, int(a), doc.IntOrDefault(base+".ref", -1))
	assert.Equal(t, "com.example.a", doc.StringOrDefault(base+".identifier", ""))
	assert.False(t, doc.Exists(`itemsByOwner.\*.items.0.embeddedItems.0.embeddedItems`))

	lines := slices.Collect(ToText(s))
	assert.Contains(t, lines, fmt.Sprintf("        backReference: com.example.a (#%d)", a))
}

func TestFormatters_ProblemsAndPayloads(t *testing.T) {
	b := archivetest.New()
	bad := item(b, map[string]string{"identifier": "com.example.bad"},
		plist.Dict{"url": b.URL("file:///%zz")})
	owners := b.Dictionary([]string{"501"}, []plist.UID{b.Set(bad)})
	payloads := b.Dictionary([]string{"com.example.profile"}, []plist.UID{b.Data([]byte("payload"))})
	b.Root(b.Object("Storage", plist.Dict{
		"itemsByUserIdentifier":   owners,
		"mdmPayloadsByIdentifier": payloads,
	}))
	s := mustParse(t, b)

	m := ToMapping(s)
	assert.Equal(t, []string{KeyVersion, KeyItemsByOwner, KeyMDMPayloadsByIdentifier, KeyError}, m.Keys())

	doc, err := (&Result{Storage: s}).Document()
	require.NoError(t, err)

	assert.Equal(t, 1, doc.IntOrDefault("version", 0))
	n, err := doc.Count("error")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "com.example.bad", doc.StringOrDefault("error.0.identifier", ""))
	assert.Equal(t, "url", doc.StringOrDefault("error.0.field", ""))
	assert.Contains(t, doc.StringOrDefault("error.0.reason", ""), "invalid url")
	assert.Equal(t, 7, doc.IntOrDefault("mdmPayloadsByIdentifier.com\\.example\\.profile.length", 0))
	assert.False(t, doc.Exists(`itemsByOwner.501.items.0.url`))

	lines := slices.Collect(ToText(s))
	assert.Contains(t, lines, "mdmPayloadsByIdentifier:")
	assert.Contains(t, lines, fmt.Sprintf("  com.example.profile: <7 bytes, xxhash64 %s>", digest([]byte("payload"))))
	assert.Contains(t, lines, "errors:")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "  com.example.bad: url: "), lines[len(lines)-1])
}

func TestFormatters_ListOptions(t *testing.T) {
	b := archivetest.New()
	ids := []string{"com.example.b", "com.example.a", "org.other.x", "com.example.a.10", "com.example.a.9"}
	var recs []plist.UID
	for _, id := range ids {
		recs = append(recs, item(b, map[string]string{"identifier": id}, nil))
	}
	owners := b.Dictionary(
		[]string{"501", "0"},
		[]plist.UID{b.Set(recs...), b.Set(recs[0])},
	)
	b.Root(b.Object("Storage", plist.Dict{"itemsByUserIdentifier": owners}))
	s := mustParse(t, b)

	identifiers := func(opts ...*options.ListOptions) []string {
		doc, err := (&Result{Storage: s}).Document(opts...)
		require.NoError(t, err)
		var out []string
		raw := doc.StringOrDefault(`itemsByOwner.501.items.#.identifier`, "[]")
		require.NoError(t, json.Unmarshal([]byte(raw), &out))
		return out
	}

	tt := []struct {
		name string
		opts []*options.ListOptions
		want []string
	}{
		{
			name: "default order",
			want: []string{"com.example.a", "com.example.a.9", "com.example.a.10", "com.example.b", "org.other.x"},
		},
		{
			name: "descending",
			opts: []*options.ListOptions{options.List().SetOrder(options.Descend)},
			want: []string{"org.other.x", "com.example.b", "com.example.a.10", "com.example.a.9", "com.example.a"},
		},
		{
			name: "prefix",
			opts: []*options.ListOptions{options.List().IdentifierPrefix("com.example.a")},
			want: []string{"com.example.a", "com.example.a.9", "com.example.a.10"},
		},
		{
			name: "pattern",
			opts: []*options.ListOptions{options.List().IdentifierMatch("*.a.?")},
			want: []string{"com.example.a.9"},
		},
		{
			name: "pattern and descending",
			opts: []*options.ListOptions{options.List().IdentifierMatch("com.*").SetOrder(options.Descend)},
			want: []string{"com.example.b", "com.example.a.10", "com.example.a.9", "com.example.a"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, identifiers(tc.opts...))
		})
	}

	t.Run("owner filter and names", func(t *testing.T) {
		lo := options.List().OnlyOwner("501").OwnerNames(func(owner string) (string, bool) {
			return "alice", owner == "501"
		})

		m := ToMapping(s, lo)
		owners, ok := m.Get(KeyItemsByOwner)
		require.True(t, ok)
		assert.Equal(t, []string{"501"}, owners.(*Mapping).Keys())

		lines := slices.Collect(ToText(s, lo))
		assert.Contains(t, lines, "owner: 501 (alice)")
		assert.NotContains(t, lines, "owner: 0")

		b, err := json.Marshal(m)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"501":{"account":"alice","items":[`)
	})
}

func TestMapping(t *testing.T) {
	m := NewMapping().Set("b", 1).Set("a", "x").Set("b", 2)
	m.prepend("path", "/tmp/x")

	assert.Equal(t, []string{"path", "b", "a"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"path":"/tmp/x","b":2,"a":"x"}`, string(b))

	empty, err := json.Marshal(NewMapping())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}
