package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	k := ObjectKey("/products/", "Photo.JPG")
	assert.True(t, strings.HasPrefix(k, "products/"))
	assert.True(t, strings.HasSuffix(k, ".jpg"))
	assert.NotEqual(t, k, ObjectKey("products", "Photo.JPG"))
}

func TestPublicBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://cdn.example.com", publicBase(Config{PublicURL: "https://cdn.example.com/"}))
	assert.Equal(t, "http://minio:9000/pets", publicBase(Config{Endpoint: "http://minio:9000", Bucket: "pets"}))
	assert.Equal(t, "https://pets.s3.eu-west-1.amazonaws.com", publicBase(Config{Bucket: "pets", Region: "eu-west-1"}))
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store(context.Background(), Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestS3StoreUploadAndDelete(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
		paths   []string
		payload string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodPut {
			payload = string(body)
		}
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), Config{
		Bucket:    "pets",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	img, err := store.Upload(context.Background(), "products", "a.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img.PublicID, "products/"))
	assert.Equal(t, srv.URL+"/pets/"+img.PublicID, img.URL)

	require.NoError(t, store.Delete(context.Background(), img.PublicID))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, methods, 2)
	assert.Equal(t, http.MethodPut, methods[0])
	assert.Equal(t, "/pets/"+img.PublicID, paths[0])
	assert.Contains(t, payload, "png-bytes")
	assert.Equal(t, http.MethodDelete, methods[1])
}

func TestDisabledStore(t *testing.T) {
	t.Parallel()

	_, err := Disabled{}.Upload(context.Background(), "x", "y.png", "image/png", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, Disabled{}.Delete(context.Background(), "x"))
}
