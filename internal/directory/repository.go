package directory

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/service/cache"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
	"github.com/kapu/parish-directory-go/internal/session"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/kapu/parish-directory-go/pkg/errors"
	"go.uber.org/zap"
)

// DocumentCache is the read-through cache used by LoadCached.
type DocumentCache interface {
	GetDocument(ctx context.Context, path string) (*cache.DocumentEntry, bool)
	SetDocument(ctx context.Context, path string, entry cache.DocumentEntry)
	InvalidateDocument(ctx context.Context, path string)
}

type Config struct {
	DataPath   string
	PhotosPath string
}

// Repository reads and writes the directory document held in the content store.
type Repository struct {
	store      contentstore.Store
	cache      DocumentCache
	validate   *validator.Validate
	clock      util.Clock
	newID      func() string
	dataPath   string
	photosPath string
	logger     *zap.Logger
}

// NewRepository builds a repository. docCache may be nil.
func NewRepository(store contentstore.Store, docCache DocumentCache, cfg Config, clock util.Clock, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DataPath == "" {
		cfg.DataPath = constants.StoreConfig.DataPath
	}
	if cfg.PhotosPath == "" {
		cfg.PhotosPath = constants.StoreConfig.PhotosPath
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Repository{
		store:      store,
		cache:      docCache,
		validate:   validate,
		clock:      clock,
		newID:      uuid.NewString,
		dataPath:   cfg.DataPath,
		photosPath: cfg.PhotosPath,
		logger:     logger,
	}
}

// DataPath is where the document lives in the store.
func (r *Repository) DataPath() string {
	return r.dataPath
}

// PhotoPath is where an uploaded photo named filename lives in the store.
func (r *Repository) PhotoPath(filename string) string {
	return r.photosPath + filename
}

// Load fetches and parses the current document. It never fails: a missing document
// yields StatusMissing, an unreachable store or malformed JSON yields StatusUnavailable
// with Err set. Both come with an empty document.
func (r *Repository) Load(ctx context.Context) *Snapshot {
	content, err := r.store.Fetch(ctx, r.dataPath)
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.Info("Directory document not created yet", zap.String("path", r.dataPath))
			return &Snapshot{Document: domain.NewDocument(), Status: StatusMissing}
		}
		r.logger.Warn("Directory document unavailable", zap.String("path", r.dataPath), zap.Error(err))
		return unavailable(err)
	}
	return r.snapshotFrom(content.Data, content.Token)
}

// LoadCached serves public reads, from the document cache when it holds a copy.
// Admin operations must use Load.
func (r *Repository) LoadCached(ctx context.Context) *Snapshot {
	if r.cache != nil {
		if entry, ok := r.cache.GetDocument(ctx, r.dataPath); ok {
			snap := r.snapshotFrom(entry.Data, contentstore.Token(entry.Token))
			if snap.Status == StatusOK {
				snap.Cached = true
				return snap
			}
		}
	}

	snap := r.Load(ctx)
	if r.cache != nil && snap.Status == StatusOK {
		if data, err := snap.Document.Marshal(); err == nil {
			r.cache.SetDocument(ctx, r.dataPath, cache.DocumentEntry{Data: data, Token: string(snap.Token)})
		}
	}
	return snap
}

func (r *Repository) snapshotFrom(data []byte, token contentstore.Token) *Snapshot {
	doc, err := domain.ParseDocument(data)
	if err != nil {
		r.logger.Error("Directory document is malformed", zap.String("path", r.dataPath), zap.Error(err))
		// the token is dropped so that nothing can overwrite the unreadable document
		return unavailable(err)
	}
	return &Snapshot{Document: doc, Token: token, Status: StatusOK}
}

// AddMember appends a new member. The name is stored lower-cased, matching the records the
// directory has always held; display code title-cases it again.
func (r *Repository) AddMember(sess *session.Session, doc *domain.Document, in domain.NewMember) (*domain.Document, error) {
	if err := sess.Require("add member"); err != nil {
		return nil, err
	}

	in = trimMember(in)
	if err := r.ValidateMember(in); err != nil {
		return nil, err
	}

	out := doc.Clone()
	out.Members = append(out.Members, domain.Member{
		ID:       r.newID(),
		Name:     strings.ToLower(in.Name),
		Phone:    in.Phone,
		Address:  in.Address,
		Email:    in.Email,
		Birthday: in.Birthday,
		Photo:    in.Photo,
		Joined:   r.clock.Timestamp(),
	})
	return out, nil
}

// ValidateMember checks the required member fields without touching any document.
func (r *Repository) ValidateMember(in domain.NewMember) error {
	if err := r.validate.Struct(trimMember(in)); err != nil {
		return validationError(err)
	}
	return nil
}

// ValidateAnnouncement rejects blank announcement text.
func ValidateAnnouncement(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError("announcement text is required", "text", text)
	}
	return nil
}

// RemoveMember drops the member at ref.Index. When ref.ID is set it must match the
// stored record's ID.
func (r *Repository) RemoveMember(sess *session.Session, doc *domain.Document, ref Ref) (*domain.Document, error) {
	if err := sess.Require("remove member"); err != nil {
		return nil, err
	}
	if ref.Index < 0 || ref.Index >= len(doc.Members) || (ref.ID != "" && doc.Members[ref.Index].ID != ref.ID) {
		return nil, errors.NewNotFoundError("member not found", ref.String("members"))
	}

	out := doc.Clone()
	out.Members = append(out.Members[:ref.Index], out.Members[ref.Index+1:]...)
	return out, nil
}

// AddAnnouncement appends an announcement stamped with the current time.
func (r *Repository) AddAnnouncement(sess *session.Session, doc *domain.Document, text string) (*domain.Document, error) {
	if err := sess.Require("add announcement"); err != nil {
		return nil, err
	}
	if err := ValidateAnnouncement(text); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	out := doc.Clone()
	out.Messages = append(out.Messages, domain.Announcement{
		ID:   r.newID(),
		Text: text,
		Date: r.clock.Timestamp(),
	})
	return out, nil
}

func (r *Repository) RemoveAnnouncement(sess *session.Session, doc *domain.Document, ref Ref) (*domain.Document, error) {
	if err := sess.Require("remove announcement"); err != nil {
		return nil, err
	}
	if ref.Index < 0 || ref.Index >= len(doc.Messages) || (ref.ID != "" && doc.Messages[ref.Index].ID != ref.ID) {
		return nil, errors.NewNotFoundError("announcement not found", ref.String("messages"))
	}

	out := doc.Clone()
	out.Messages = append(out.Messages[:ref.Index], out.Messages[ref.Index+1:]...)
	return out, nil
}

// Persist writes doc back, conditional on token still being current, and returns the new
// token. On success doc.LastUpdate holds the time stamped into the write.
func (r *Repository) Persist(ctx context.Context, sess *session.Session, doc *domain.Document, token contentstore.Token) (contentstore.Token, error) {
	if err := sess.Require("persist directory"); err != nil {
		return "", err
	}

	out := doc.Clone()
	out.LastUpdate = r.clock.Timestamp()
	data, err := out.Marshal()
	if err != nil {
		return "", err
	}

	newToken, err := r.store.Write(ctx, r.dataPath, data, token, constants.StoreConfig.CommitMessage)
	if err != nil {
		r.logger.Warn("Failed to persist directory",
			zap.String("path", r.dataPath),
			zap.String("token", string(token)),
			zap.Error(err),
		)
		// whatever the cache holds is older than the store now
		if r.cache != nil && errors.IsConflict(err) {
			r.cache.InvalidateDocument(ctx, r.dataPath)
		}
		return "", fmt.Errorf("persist directory: %w", err)
	}

	doc.LastUpdate = out.LastUpdate
	if r.cache != nil {
		r.cache.SetDocument(ctx, r.dataPath, cache.DocumentEntry{Data: data, Token: string(newToken)})
	}

	r.logger.Info("Directory persisted",
		zap.Int("members", len(out.Members)),
		zap.Int("announcements", len(out.Messages)),
		zap.String("token", string(newToken)),
	)
	return newToken, nil
}

// Apply runs one admin change against a freshly loaded document and persists it with
// token, the version the admin was looking at. A token that is no longer current fails
// with a ConflictError before mutate runs.
func (r *Repository) Apply(ctx context.Context, sess *session.Session, token contentstore.Token, mutate func(*domain.Document) (*domain.Document, error)) (*Snapshot, error) {
	if err := sess.Require("update directory"); err != nil {
		return nil, err
	}

	snap := r.Load(ctx)
	if snap.Status == StatusUnavailable {
		return nil, snap.Err
	}
	if snap.Token != token {
		return nil, errors.NewConflictError("directory changed since it was loaded", r.dataPath, string(token))
	}

	doc, err := mutate(snap.Document)
	if err != nil {
		return nil, err
	}

	newToken, err := r.Persist(ctx, sess, doc, token)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Document: doc, Token: newToken, Status: StatusOK}, nil
}

func trimMember(in domain.NewMember) domain.NewMember {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Email = strings.TrimSpace(in.Email)
	in.Birthday = strings.TrimSpace(in.Birthday)
	in.Photo = strings.TrimSpace(in.Photo)
	return in
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fmt.Sprintf("%s is required", fe.Field()), fe.Field(), fe.Value())
	}
	verr := errors.NewValidationError("invalid member", "member", nil)
	verr.Cause = err
	return verr
}
