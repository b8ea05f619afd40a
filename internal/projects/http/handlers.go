package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/genart-works/genart-backend/internal/artifacts"
	"github.com/genart-works/genart-backend/internal/auth"
	"github.com/genart-works/genart-backend/internal/projects/domain"
	"github.com/genart-works/genart-backend/internal/render"
)

const imageContentType = "image/jpeg"

func (h *Handler) welcome(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to the Generative Art server!")
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) listSince(c *gin.Context) {
	timestamp, err := strconv.ParseInt(c.Param("timestamp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp is not a valid integer"})
		return
	}

	items, err := h.svc.ListSince(c.Request.Context(), timestamp)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) listByUser(c *gin.Context) {
	items, err := h.svc.ListByOwner(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) image(c *gin.Context) {
	data, err := h.svc.Thumbnail(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, imageContentType, data)
}

func (h *Handler) run(c *gin.Context) {
	projectID := c.Param("uuid")

	width, werr := strconv.Atoi(c.Query("width"))
	height, herr := strconv.Atoi(c.Query("height"))
	if werr != nil || herr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width or height is not a valid integer"})
		return
	}

	if !h.renderLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many render requests, try again later"})
		return
	}

	image, err := h.svc.Run(c.Request.Context(), projectID, width, height)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, imageContentType, image)
}

func (h *Handler) myProjects(c *gin.Context) {
	items, err := h.svc.ListByOwner(c.Request.Context(), auth.Username(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	data, ok := projectDataFromForm(form)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or un-parseable new project json"})
		return
	}

	executable, err := filePart(form, "jar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing jar file"})
		return
	}
	thumbnail, err := filePart(form, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), auth.Username(c), data, executable, thumbnail)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) updateMetadata(c *gin.Context) {
	var data domain.ProjectData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if err := h.svc.UpdateMetadata(c.Request.Context(), auth.Username(c), c.Param("uuid"), data); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) updateExecutable(c *gin.Context) {
	h.replaceArtifact(c, artifacts.KindExecutable, "jar")
}

func (h *Handler) updateThumbnail(c *gin.Context) {
	h.replaceArtifact(c, artifacts.KindThumbnail, "image")
}

func (h *Handler) replaceArtifact(c *gin.Context, kind artifacts.Kind, partName string) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	data, err := filePart(form, partName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": partName + " file not included"})
		return
	}

	if err := h.svc.ReplaceArtifact(c.Request.Context(), auth.Username(c), c.Param("uuid"), kind, data); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.Username(c), c.Param("uuid")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// fail maps service errors onto HTTP responses. Ownership failures reuse one
// combined message so callers cannot tell a foreign project from a missing
// one; render failures collapse to one message with the kind logged upstream.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrUnauthorized.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no project with that ID exists"})
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if kind, ok := render.Failure(err); ok {
			if kind == render.FailBadSize {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// projectDataFromForm finds the metadata part of the create form: the part
// named "project" if present, otherwise the first value that parses.
func projectDataFromForm(form *multipart.Form) (domain.ProjectData, bool) {
	candidates := form.Value["project"]
	for _, values := range form.Value {
		candidates = append(candidates, values...)
	}

	for _, v := range candidates {
		var data domain.ProjectData
		if err := json.Unmarshal([]byte(v), &data); err == nil && data.Name != "" {
			return data, true
		}
	}
	return domain.ProjectData{}, false
}

func filePart(form *multipart.Form, name string) ([]byte, error) {
	files := form.File[name]
	if len(files) == 0 {
		return nil, errors.New("missing part " + name)
	}

	f, err := files[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
