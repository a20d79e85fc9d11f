package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// PhotoStore keeps employee badge photos on the local filesystem, one JPEG
// per employee number.  URLs are served under baseURL by the photo handler.
type PhotoStore struct {
	dir     string
	baseURL string
}

// NewPhotoStore creates the storage directory if needed.
func NewPhotoStore(dir, baseURL string) (*PhotoStore, error) {
	if dir == "" {
		dir = "fotos"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &PhotoStore{dir: dir, baseURL: baseURL}, nil
}

func (s *PhotoStore) path(employeeNumber string) string {
	return filepath.Join(s.dir, employeeNumber+".jpg")
}

// URL returns the servable URL for an employee's photo and whether the
// photo exists on disk.
func (s *PhotoStore) URL(employeeNumber string) (string, bool) {
	if !model.ValidEmployeeNumber(employeeNumber) {
		return "", false
	}
	if _, err := os.Stat(s.path(employeeNumber)); err != nil {
		return "", false
	}
	return s.baseURL + "/fotos/" + employeeNumber + ".jpg", true
}

// Open returns a reader over the stored photo.  os.ErrNotExist is passed
// through for the handler to turn into a 404.
func (s *PhotoStore) Open(employeeNumber string) (io.ReadCloser, error) {
	if !model.ValidEmployeeNumber(employeeNumber) {
		return nil, os.ErrNotExist
	}
	return os.Open(s.path(employeeNumber))
}

// Save replaces the employee's photo with the uploaded content.  The write
// goes through a temp file and rename so a failed upload never truncates an
// existing photo.
func (s *PhotoStore) Save(employeeNumber string, r io.Reader) error {
	if !model.ValidEmployeeNumber(employeeNumber) {
		return fmt.Errorf("invalid employee number %q", employeeNumber)
	}
	tmp, err := os.CreateTemp(s.dir, employeeNumber+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(employeeNumber))
}
