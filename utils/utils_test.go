package utils

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

type memStorage struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memStorage) Upload(_ context.Context, file io.Reader, objectKey, contentType string) (string, error) {
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	m.objects[objectKey] = contentType
	return objectKey, nil
}

func (m *memStorage) PresignedURL(_ context.Context, objectKey string) (string, error) {
	return "https://cdn.test/" + objectKey, nil
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "user-1")
	require.NoError(t, err)

	id, err := UserIDFromToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	_, err = UserIDFromToken("other", token)
	assert.Error(t, err)

	_, err = GenerateToken("", "user-1")
	assert.Error(t, err)
}

func TestExtractURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/p/abc", ExtractURL("love this https://www.instagram.com/p/abc."))
	assert.Equal(t, "http://shop.test/item?id=2", ExtractURL("(http://shop.test/item?id=2)"))
	assert.Empty(t, ExtractURL("no links here"))
}

func TestIsSocialMediaURL(t *testing.T) {
	assert.True(t, IsSocialMediaURL("https://www.instagram.com/p/abc"))
	assert.True(t, IsSocialMediaURL("https://in.pinterest.com/pin/1"))
	assert.True(t, IsSocialMediaURL("https://pin.it/xyz"))
	assert.False(t, IsSocialMediaURL("https://www.myntra.com/shirts/1"))
	assert.False(t, IsSocialMediaURL("https://notinstagram.com/p/abc"))
}

func TestResolveShortenedURLFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resolved, err := ResolveShortenedURL(context.Background(), srv.URL+"/short")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/final", resolved)
}

func TestFetchPreviewImagesDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head>
<meta property="og:image" content="https://img.test/a.jpg">
<meta property="og:image:secure_url" content="https://img.test/a.jpg">
<meta name="twitter:image" content="https://img.test/b.jpg">
</head></html>`)
	}))
	defer srv.Close()

	images, err := FetchPreviewImages(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.test/a.jpg", "https://img.test/b.jpg"}, images)
}

func TestCopyImagesToStorageSkipsFailures(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nrest")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	storage := &memStorage{}
	keys := CopyImagesToStorage(context.Background(), storage, []string{srv.URL + "/a.png", srv.URL + "/missing.jpg", ""}, "social/u1")

	require.Len(t, keys, 1)
	key := keys[srv.URL+"/a.png"]
	assert.True(t, strings.HasPrefix(key, "social/u1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "image/png", storage.objects[key])
}

func TestPresignImageURLs(t *testing.T) {
	urls := PresignImageURLs(context.Background(), &memStorage{}, []string{"https://img.test/x.jpg", "avatars/u1/a.png"})
	assert.Equal(t, []string{"https://img.test/x.jpg", "https://cdn.test/avatars/u1/a.png"}, urls)

	assert.Equal(t, []string{"k"}, PresignImageURLs(context.Background(), nil, []string{"k"}))
}

func TestLookupCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/203.0.113.9" {
			io.WriteString(w, `{"status":"success","country":"India","countryCode":"IN"}`)
			return
		}
		io.WriteString(w, `{"status":"fail"}`)
	}))
	defer srv.Close()

	loc, err := LookupCountry(context.Background(), srv.URL+"/", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "India", loc.Country)
	assert.Equal(t, "IN", loc.CountryCode)

	_, err = LookupCountry(context.Background(), srv.URL, "10.0.0.1")
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(r))
}

func TestDecodeAndValidate(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}

	var ok body
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
	require.NoError(t, DecodeAndValidate(r, &ok))
	assert.Equal(t, "a@b.co", ok.Email)

	var bad body
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	assert.ErrorContains(t, DecodeAndValidate(r, &bad), "validation failed")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.ErrorContains(t, DecodeAndValidate(r, &bad), "invalid request body")
}

func TestAddToLogMessage(t *testing.T) {
	var b strings.Builder
	AddToLogMessage(&b, "[Test API]")
	AddToLogMessage(&b, "done")
	assert.Equal(t, "[Test API];\ndone;\n", b.String())
}
