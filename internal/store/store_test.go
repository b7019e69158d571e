package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0600))
	return p
}

func TestLatest(t *testing.T) {
	t.Run("picks the highest format number", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "BackgroundItems-v4.btm", nil)
		touch(t, dir, "BackgroundItems-v12.btm", nil)
		touch(t, dir, "BackgroundItems-v9.btm", nil)
		touch(t, dir, "BackgroundItems-v99.btm.bak", nil)
		touch(t, dir, "notes.txt", nil)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "BackgroundItems-v100.btm"), 0700))

		p, err := Latest(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "BackgroundItems-v12.btm"), p)

		v, ok := Version(p)
		assert.True(t, ok)
		assert.Equal(t, 12, v)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Latest(t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoStore))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Latest(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoStore))
	})
}

func TestRead(t *testing.T) {
	t.Run("small and large files are read whole", func(t *testing.T) {
		dir := t.TempDir()
		for _, size := range []int{0, 10, 511, 512, 4096 + 7} {
			data := bytes.Repeat([]byte{0xA5}, size)
			p := touch(t, dir, "store.btm", data)

			got, err := Read(p)
			require.NoError(t, err)
			assert.Equal(t, data, got, "size %d", size)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Read(filepath.Join(t.TempDir(), "BackgroundItems-v1.btm"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoStore))
	})
}

func TestAccountName(t *testing.T) {
	orig := lookupID
	defer func() { lookupID = orig }()

	var asked []string
	lookupID = func(uid string) (string, error) {
		asked = append(asked, uid)
		if uid == "501" {
			return "alice", nil
		}
		return "", errors.New("unknown user")
	}

	tt := []struct {
		owner string
		name  string
		ok    bool
	}{
		{owner: "501", name: "alice", ok: true},
		{owner: "FFFFEEEE-DDDD-CCCC-BBBB-AAAA000001F5", name: "alice", ok: true},
		{owner: "ffffeeee-dddd-cccc-bbbb-aaaa000001f5", name: "alice", ok: true},
		{owner: "502"},
		{owner: "*"},
		{owner: "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"},
		{owner: "-1"},
	}

	for _, tc := range tt {
		t.Run(tc.owner, func(t *testing.T) {
			name, ok := AccountName(tc.owner)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.name, name)
		})
	}

	assert.Equal(t, []string{"501", "501", "501", "502"}, asked)
}

func TestUID(t *testing.T) {
	tt := []struct {
		owner string
		uid   uint32
		ok    bool
	}{
		{owner: "0", uid: 0, ok: true},
		{owner: "501", uid: 501, ok: true},
		{owner: "FFFFEEEE-DDDD-CCCC-BBBB-AAAA000001F5", uid: 501, ok: true},
		{owner: "FFFFEEEE-DDDD-CCCC-BBBB-AAAAFFFFFFFE", uid: 4294967294, ok: true},
		{owner: "4294967296"},
		{owner: "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"},
		{owner: "*"},
		{owner: ""},
	}

	for _, tc := range tt {
		t.Run(tc.owner, func(t *testing.T) {
			uid, ok := UID(tc.owner)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.uid, uid)
		})
	}
}
