package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
	"github.com/kapu/parish-directory-go/internal/session"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/kapu/parish-directory-go/pkg/errors"
	"go.uber.org/zap"
)

// PhotoFilename names a member photo "<name>_<phone>.<ext>", the name lower-cased with
// spaces turned into underscores and ext taken from the uploaded file's name.
func PhotoFilename(name, phone, uploadName string) string {
	phone = strings.NewReplacer("/", "-", "\\", "-", " ", "").Replace(strings.TrimSpace(phone))
	stem := util.SafeFileStem(name) + "_" + phone
	if ext := util.Extension(uploadName); ext != "" {
		return stem + "." + ext
	}
	return stem
}

// UploadPhoto stores a member photo under the photos folder. Photos are never replaced:
// a file already present under that name is a ConflictError.
func (r *Repository) UploadPhoto(ctx context.Context, sess *session.Session, filename string, data []byte) error {
	if err := sess.Require("upload photo"); err != nil {
		return err
	}
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		return errors.NewValidationError("invalid photo filename", "photo", filename)
	}
	if len(data) == 0 {
		return errors.NewValidationError("photo is empty", "photo", filename)
	}

	if _, err := r.store.Write(ctx, r.PhotoPath(filename), data, "", "Upload photo: "+filename); err != nil {
		r.logger.Warn("Photo upload failed", zap.String("filename", filename), zap.Error(err))
		return fmt.Errorf("upload photo %s: %w", filename, err)
	}
	return nil
}

// UploadLogo creates or replaces logo.<ext> at the store root and returns its path.
func (r *Repository) UploadLogo(ctx context.Context, sess *session.Session, uploadName string, data []byte) (string, error) {
	if err := sess.Require("upload logo"); err != nil {
		return "", err
	}
	ext := util.Extension(uploadName)
	if ext == "" {
		return "", errors.NewValidationError("logo file needs an extension", "logo", uploadName)
	}
	if len(data) == 0 {
		return "", errors.NewValidationError("logo is empty", "logo", uploadName)
	}

	path := constants.StoreConfig.LogoBaseName + "." + ext

	var token contentstore.Token
	existing, err := r.store.Fetch(ctx, path)
	switch {
	case err == nil:
		token = existing.Token
	case !errors.IsNotFound(err):
		return "", fmt.Errorf("look up current logo: %w", err)
	}

	if _, err := r.store.Write(ctx, path, data, token, "Update church logo"); err != nil {
		return "", fmt.Errorf("upload logo: %w", err)
	}
	return path, nil
}

// Backup returns the stored document bytes as they are now, with a timestamped file name.
func (r *Repository) Backup(ctx context.Context, sess *session.Session) ([]byte, string, error) {
	if err := sess.Require("backup"); err != nil {
		return nil, "", err
	}
	content, err := r.store.Fetch(ctx, r.dataPath)
	if err != nil {
		return nil, "", fmt.Errorf("backup directory: %w", err)
	}
	return content.Data, r.clock.BackupName(), nil
}
