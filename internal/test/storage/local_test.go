package storage_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"facequery-backend/internal/storage"
)

// fileHeader builds a real *multipart.FileHeader the way gin would hand it to
// the handler, by round-tripping a multipart body through an http request.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("photo", filename)
	assert.NoError(t, err)
	_, err = fw.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	_, header, err := req.FormFile("photo")
	assert.NoError(t, err)
	return header
}

func TestSave_LayoutAndContent(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	userID := uuid.New()
	relPath, err := store.Save(userID, fileHeader(t, "face.jpg", []byte("image-bytes")))
	assert.NoError(t, err)
	assert.Equal(t, "user_"+userID.String()+"/face.jpg", relPath)

	abs, err := store.Path(relPath)
	assert.NoError(t, err)
	data, err := os.ReadFile(abs)
	assert.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestSave_CollisionKeepsBothFiles(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	userID := uuid.New()
	first, err := store.Save(userID, fileHeader(t, "face.jpg", []byte("first")))
	assert.NoError(t, err)
	second, err := store.Save(userID, fileHeader(t, "face.jpg", []byte("second")))
	assert.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "user_"+userID.String()+"/face_"))
	assert.True(t, strings.HasSuffix(second, ".jpg"))

	firstAbs, err := store.Path(first)
	assert.NoError(t, err)
	data, err := os.ReadFile(firstAbs)
	assert.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestSave_StripsDirectoryComponents(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocalStore(root)
	assert.NoError(t, err)

	userID := uuid.New()
	relPath, err := store.Save(userID, fileHeader(t, "../../evil.jpg", []byte("x")))
	assert.NoError(t, err)
	assert.Equal(t, "user_"+userID.String()+"/evil.jpg", relPath)

	_, err = os.Stat(filepath.Join(root, "..", "evil.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestPath_RejectsEscape(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	_, err = store.Path("../outside.jpg")
	assert.Error(t, err)
	_, err = store.Path("user_x/../../outside.jpg")
	assert.Error(t, err)
}

func TestRemove_DeletesFile(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	userID := uuid.New()
	relPath, err := store.Save(userID, fileHeader(t, "face.jpg", []byte("x")))
	assert.NoError(t, err)

	assert.NoError(t, store.Remove(relPath))

	abs, err := store.Path(relPath)
	assert.NoError(t, err)
	_, err = os.Stat(abs)
	assert.True(t, os.IsNotExist(err))
}

func TestRemove_AbsentFileIsNotAnError(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, store.Remove("user_gone/missing.jpg"))
}
