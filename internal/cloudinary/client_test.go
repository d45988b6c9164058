package cloudinary

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnconfigured(t *testing.T) {
	c := New("", "key", "secret", "")
	assert.Nil(t, c)
	assert.False(t, c.Enabled())
	assert.True(t, New("demo", "key", "secret", "").Enabled())
}

func TestSignExcludesAPIKey(t *testing.T) {
	c := New("demo", "key", "abcd", "")
	got := c.sign(map[string]string{"timestamp": "1315060510", "public_id": "sample_image", "api_key": "key", "folder": ""})
	// sha1("public_id=sample_image&timestamp=1315060510abcd")
	assert.Equal(t, "b4ad47fb4e25c7bf5f92a20089f9db59bc302313", got)
}

func TestUploadRaw(t *testing.T) {
	var fields map[string]string
	var file []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/raw/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		file, _ = io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"public_id":"reports/r1","secure_url":"https://res.example/r1.xlsx","format":"xlsx","bytes":4}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "reports")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadRaw(context.Background(), []byte("xlsx"), "r1.xlsx", "r1")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/r1.xlsx", res.SecureURL)
	assert.Equal(t, []byte("xlsx"), file)

	assert.Equal(t, "1700000000", fields["timestamp"])
	assert.Equal(t, "key", fields["api_key"])
	assert.Equal(t, "reports", fields["folder"])
	assert.Equal(t, "r1", fields["public_id"])
	assert.Equal(t, c.sign(map[string]string{"timestamp": "1700000000", "folder": "reports", "public_id": "r1"}), fields["signature"])
}

func TestUploadRawError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadRaw(context.Background(), []byte("x"), "r.xlsx", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid Signature")
}
