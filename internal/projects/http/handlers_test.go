package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/genart-works/genart-backend/internal/artifacts"
	"github.com/genart-works/genart-backend/internal/auth"
	"github.com/genart-works/genart-backend/internal/projects/domain"
	"github.com/genart-works/genart-backend/internal/projects/repository"
	"github.com/genart-works/genart-backend/internal/projects/service"
	"github.com/genart-works/genart-backend/internal/render"
)

// renderScript echoes the requested size into the output file, standing in
// for a real generator executable.
const renderScript = "#!/bin/sh\nprintf '%sx%s' \"$1\" \"$2\" > \"$3\"\n"

func newTestRouter(t *testing.T) (*gin.Engine, *auth.TokenIssuer, *service.ProjectService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := artifacts.NewStore(t.TempDir())
	require.NoError(t, err)

	engine := render.NewEngine(nil, 10*time.Second, 4096, t.TempDir())
	svc := service.NewProjectService(repository.NewMemoryRepository(), store, engine)
	issuer := auth.NewTokenIssuer("test-secret", "genart-backend", "genart-users", time.Minute)

	r := gin.New()
	Register(r, svc, issuer, rate.NewLimiter(rate.Inf, 1))
	return r, issuer, svc
}

func bearer(t *testing.T, issuer *auth.TokenIssuer, username string) string {
	t.Helper()
	token, err := issuer.Issue(username)
	require.NoError(t, err)
	return "Bearer " + token
}

// createForm builds the multipart body the create endpoint expects: a json
// metadata part plus jar and image file parts.
func createForm(t *testing.T, data domain.ProjectData, executable, thumbnail []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	meta, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("project", string(meta)))

	jar, err := w.CreateFormFile("jar", "project.jar")
	require.NoError(t, err)
	_, err = jar.Write(executable)
	require.NoError(t, err)

	img, err := w.CreateFormFile("image", "thumb.jpg")
	require.NoError(t, err)
	_, err = img.Write(thumbnail)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func createProject(t *testing.T, r *gin.Engine, token, name string) domain.Project {
	t.Helper()

	body, contentType := createForm(t, domain.ProjectData{Name: name, Description: "a test piece"},
		[]byte(renderScript), []byte("jpeg-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/project/create", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestWelcome(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Generative Art")
}

func TestCreateRequiresToken(t *testing.T) {
	r, _, _ := newTestRouter(t)

	body, contentType := createForm(t, domain.ProjectData{Name: "fractal"},
		[]byte("exec"), []byte("img"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/project/create", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	r, issuer, _ := newTestRouter(t)
	alice := bearer(t, issuer, "alice-painter")

	created := createProject(t, r, alice, "fractal flame")
	assert.Equal(t, "alice-painter", created.Username)
	assert.Equal(t, 1, created.Version)

	t.Run("myprojects lists it", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/myprojects", nil)
		req.Header.Set("Authorization", alice)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var items []domain.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, created.UUID, items[0].UUID)
	})

	t.Run("public get", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/project/"+created.UUID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var p domain.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, "fractal flame", p.Name)
	})

	t.Run("public thumbnail", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/project/image/"+created.UUID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, "jpeg-bytes", w.Body.String())
	})

	t.Run("metadata update keeps version", func(t *testing.T) {
		payload, err := json.Marshal(domain.ProjectData{Name: "fractal flame v2", Description: "now warmer"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/project/update/project/"+created.UUID, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", alice)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/project/"+created.UUID, nil))
		var p domain.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, "fractal flame v2", p.Name)
		assert.Equal(t, 1, p.Version)
	})

	t.Run("replacing the jar bumps version", func(t *testing.T) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile("jar", "project.jar")
		require.NoError(t, err)
		_, err = part.Write([]byte(renderScript))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/project/update/jar/"+created.UUID, body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", alice)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/project/"+created.UUID, nil))
		var p domain.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, 2, p.Version)
	})

	t.Run("delete removes it", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/project/delete/"+created.UUID, nil)
		req.Header.Set("Authorization", alice)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/project/"+created.UUID, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOwnershipErrorsDoNotLeakExistence(t *testing.T) {
	r, issuer, _ := newTestRouter(t)
	alice := bearer(t, issuer, "alice-painter")
	mallory := bearer(t, issuer, "mallory-mallet")

	created := createProject(t, r, alice, "hidden gem")

	for _, uuid := range []string{created.UUID, "00000000-0000-0000-0000-000000000000"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/project/delete/"+uuid, nil)
		req.Header.Set("Authorization", mallory)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "does not exist or does not belong to you")
	}
}

func TestRunEndpoint(t *testing.T) {
	r, issuer, _ := newTestRouter(t)
	alice := bearer(t, issuer, "alice-painter")
	created := createProject(t, r, alice, "runnable art")

	t.Run("renders without authentication", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := fmt.Sprintf("/project/run/%s?width=12&height=34", created.UUID)
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, "12x34", w.Body.String())
	})

	t.Run("rejects malformed size", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := "/project/run/" + created.UUID + "?width=twelve&height=34"
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects out of range size", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := "/project/run/" + created.UUID + "?width=0&height=34"
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown project", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := "/project/run/00000000-0000-0000-0000-000000000000?width=12&height=34"
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no project with that ID exists")
	})
}

func TestRunRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := artifacts.NewStore(t.TempDir())
	require.NoError(t, err)
	engine := render.NewEngine(nil, 10*time.Second, 4096, t.TempDir())
	svc := service.NewProjectService(repository.NewMemoryRepository(), store, engine)
	issuer := auth.NewTokenIssuer("test-secret", "genart-backend", "genart-users", time.Minute)

	r := gin.New()
	// A zero-burst limiter refuses every request.
	Register(r, svc, issuer, rate.NewLimiter(0, 0))

	created := createProject(t, r, bearer(t, issuer, "alice-painter"), "throttled")

	w := httptest.NewRecorder()
	url := fmt.Sprintf("/project/run/%s?width=12&height=34", created.UUID)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSinceFilter(t *testing.T) {
	r, issuer, svc := newTestRouter(t)
	alice := bearer(t, issuer, "alice-painter")

	created := createProject(t, r, alice, "early work")

	t.Run("since zero includes everything", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/since/0", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var items []domain.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		assert.Len(t, items, 1)
	})

	t.Run("since the far future excludes it", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/since/9999999999999", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var items []domain.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		assert.Empty(t, items)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/since/yesterday", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	// Sanity check the record really exists through the service too.
	_, err := svc.Get(context.Background(), created.UUID)
	require.NoError(t, err)
}
