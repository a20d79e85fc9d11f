package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/service"
)

// PhotoHandler serves and uploads employee badge photos.  Photos are keyed
// by employee number; scan results and the equipment board link here.
type PhotoHandler struct {
	Photos *service.PhotoStore
}

func NewPhotoHandler(p *service.PhotoStore) *PhotoHandler {
	return &PhotoHandler{Photos: p}
}

// Get streams the stored JPEG for an employee number.
func (h *PhotoHandler) Get(c echo.Context) error {
	num := strings.ToUpper(strings.TrimSuffix(c.Param("file"), ".jpg"))
	if !model.ValidEmployeeNumber(num) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee number"})
	}
	f, err := h.Photos.Open(num)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read photo failed"})
	}
	defer f.Close()
	return c.Stream(http.StatusOK, "image/jpeg", f)
}

// Upload replaces the photo for an employee number from a multipart form
// field named "photo".
func (h *PhotoHandler) Upload(c echo.Context) error {
	num := strings.ToUpper(strings.TrimSpace(c.Param("employee_number")))
	if !model.ValidEmployeeNumber(num) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee number"})
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "photo file required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open upload failed"})
	}
	defer src.Close()
	if err := h.Photos.Save(num, src); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save photo failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
