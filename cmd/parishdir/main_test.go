package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kapu/parish-directory-go/internal/directory"
	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("s3cret", "s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = hashPassword("a", "b")
	assert.Error(t, err)
	_, err = hashPassword("", "")
	assert.Error(t, err)
}

func TestReadLegacyMembers(t *testing.T) {
	dir := t.TempDir()

	list := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(list, []byte(`[{"name":"John Doe","phone":"0901","address":"X St","birthday":"May 1","joined":"2023-01-01 10:00","photo":"john_doe_0901.jpg"}]`), 0o644))
	members, err := readLegacyMembers(list)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "John Doe", members[0].Name)
	assert.Equal(t, "May 1", members[0].Birthday)

	doc := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"members":[{"name":"a","phone":"1","address":"x"}],"messages":[]}`), 0o644))
	members, err = readLegacyMembers(doc)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	_, err = readLegacyMembers(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestCollectPhotos(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_1.jpg"), []byte("img"), 0o644))

	members := []domain.Member{
		{Name: "a", Photo: "a_1.jpg"},
		{Name: "b", Photo: "b_2.jpg"},
		{Name: "c", Photo: "Photo upload failed"},
		{Name: "d"},
	}
	photos := collectPhotos(members, dir, zap.NewNop())

	require.Len(t, photos, 1)
	assert.Equal(t, "a_1.jpg", photos[0].Filename)
	assert.Equal(t, "img", string(photos[0].Data))
	assert.Equal(t, "a_1.jpg", members[0].Photo)
	assert.Empty(t, members[1].Photo, "missing file drops the reference")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "import", "backup", "hash-password"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, importCmd.Flags().Lookup("dry-run"))
}

func TestDryRunRepositoryCopiesCurrentDocument(t *testing.T) {
	live := contentstore.NewMemoryStore()
	doc := domain.NewDocument()
	doc.Members = []domain.Member{{Name: "a", Phone: "1", Address: "x"}}
	data, err := doc.Marshal()
	require.NoError(t, err)
	live.Seed("data.json", data)

	liveRepo := directory.NewRepository(live, nil, directory.Config{}, util.NewClock(nil), zap.NewNop())
	snap := liveRepo.Load(context.Background())
	require.Equal(t, directory.StatusOK, snap.Status)

	repo, copied, err := dryRunRepository("UTC", liveRepo, snap, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, directory.StatusOK, copied.Status)
	assert.Equal(t, doc.Members, copied.Document.Members)
	assert.Equal(t, "photos/x.jpg", repo.PhotoPath("x.jpg"))
	assert.Empty(t, live.Commits(), "the live store is untouched")
}
