package web

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/directory"
	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
	"github.com/kapu/parish-directory-go/internal/session"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/kapu/parish-directory-go/pkg/errors"
)

const versionHeader = "X-Version-Token"

type directoryResponse struct {
	Status        directory.Status      `json:"status"`
	Token         string                `json:"token"`
	Document      *domain.Document      `json:"document"`
	Members       []directory.Entry     `json:"members"`
	Announcements []announcementPreview `json:"announcements"`
	Stats         directory.Stats       `json:"stats"`
}

// announcementPreview is what the admin picks from when deleting an announcement.
type announcementPreview struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Date    string `json:"date"`
	Preview string `json:"preview"`
}

type mutationResponse struct {
	Token string          `json:"token"`
	Stats directory.Stats `json:"stats"`
}

func (s *Server) login(c *fiber.Ctx) error {
	sess, err := s.guard.Login(c.FormValue("password"))
	if err != nil {
		return err
	}
	signed, err := s.guard.Issue(sess)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     constants.SessionConfig.CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  sess.ExpiresAt(),
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"state": sess.State().String(), "expires_at": sess.ExpiresAt().Format(time.RFC3339)})
}

func (s *Server) logout(c *fiber.Ctx) error {
	sess := currentSession(c)
	s.guard.Logout(sess)

	c.Cookie(&fiber.Cookie{
		Name:     constants.SessionConfig.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"state": sess.State().String()})
}

// adminDirectory always reads the store directly; admins must never act on a cached copy.
func (s *Server) adminDirectory(c *fiber.Ctx) error {
	snap := s.repo.Load(c.UserContext())
	if !snap.Available() {
		return snap.Err
	}
	return c.JSON(directoryResponse{
		Status:        snap.Status,
		Token:         string(snap.Token),
		Document:      snap.Document,
		Members:       directory.Browse(snap.Document.Members, c.Query("q")),
		Announcements: previews(snap.Document.Messages),
		Stats:         directory.StatsOf(snap.Document),
	})
}

func previews(messages []domain.Announcement) []announcementPreview {
	latest := directory.Latest(messages)
	out := make([]announcementPreview, 0, len(latest))
	for _, e := range latest {
		out = append(out, announcementPreview{
			Index:   e.Index,
			ID:      e.Announcement.ID,
			Date:    e.Announcement.Date,
			Preview: util.TruncateString(e.Announcement.Text, constants.StringLimits.AnnouncementPreview),
		})
	}
	return out
}

func (s *Server) adminStats(c *fiber.Ctx) error {
	snap := s.repo.Load(c.UserContext())
	if !snap.Available() {
		return snap.Err
	}
	return c.JSON(directory.StatsOf(snap.Document))
}

func (s *Server) backup(c *fiber.Ctx) error {
	data, name, err := s.repo.Backup(c.UserContext(), currentSession(c))
	if err != nil {
		return err
	}
	c.Attachment(name)
	c.Type("json")
	return c.Send(data)
}

func (s *Server) addMember(c *fiber.Ctx) error {
	var in domain.NewMember
	if err := c.BodyParser(&in); err != nil {
		return errors.NewValidationError("malformed member form", "member", nil)
	}
	if err := s.repo.ValidateMember(in); err != nil {
		return err
	}
	photo, err := formFile(c, "photo")
	if err != nil {
		return err
	}

	sess := currentSession(c)
	ctx := c.UserContext()
	return s.apply(c, func(doc *domain.Document) (*domain.Document, error) {
		if photo != nil {
			in.Photo = directory.PhotoFilename(in.Name, in.Phone, photo.Filename)
		}
		out, err := s.repo.AddMember(sess, doc, in)
		if err != nil {
			return nil, err
		}
		if photo != nil {
			if err := s.uploadPhoto(ctx, sess, photo, in.Photo); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

func (s *Server) uploadPhoto(ctx context.Context, sess *session.Session, fh *multipart.FileHeader, filename string) error {
	data, err := readFile(fh)
	if err != nil {
		return err
	}
	return s.repo.UploadPhoto(ctx, sess, filename, data)
}

func (s *Server) removeMember(c *fiber.Ctx) error {
	ref, err := refFrom(c)
	if err != nil {
		return err
	}
	sess := currentSession(c)
	return s.apply(c, func(doc *domain.Document) (*domain.Document, error) {
		return s.repo.RemoveMember(sess, doc, ref)
	})
}

func (s *Server) addAnnouncement(c *fiber.Ctx) error {
	text := c.FormValue("text")
	if text == "" {
		var body struct {
			Text string `json:"text"`
		}
		if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationJSON) {
			if err := c.BodyParser(&body); err != nil {
				return errors.NewValidationError("malformed announcement", "text", nil)
			}
		}
		text = body.Text
	}
	if err := directory.ValidateAnnouncement(text); err != nil {
		return err
	}

	sess := currentSession(c)
	return s.apply(c, func(doc *domain.Document) (*domain.Document, error) {
		return s.repo.AddAnnouncement(sess, doc, text)
	})
}

func (s *Server) removeAnnouncement(c *fiber.Ctx) error {
	ref, err := refFrom(c)
	if err != nil {
		return err
	}
	sess := currentSession(c)
	return s.apply(c, func(doc *domain.Document) (*domain.Document, error) {
		return s.repo.RemoveAnnouncement(sess, doc, ref)
	})
}

func (s *Server) uploadLogo(c *fiber.Ctx) error {
	logo, err := formFile(c, "logo")
	if err != nil {
		return err
	}
	if logo == nil {
		return errors.NewValidationError("logo file is required", "logo", nil)
	}
	data, err := readFile(logo)
	if err != nil {
		return err
	}

	path, err := s.repo.UploadLogo(c.UserContext(), currentSession(c), logo.Filename, data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path, "url": s.cfg.AssetURL(path)})
}

// apply runs mutate against the version the admin submitted and answers with the new token.
func (s *Server) apply(c *fiber.Ctx, mutate func(*domain.Document) (*domain.Document, error)) error {
	snap, err := s.repo.Apply(c.UserContext(), currentSession(c), versionToken(c), mutate)
	if err != nil {
		return err
	}
	return c.JSON(mutationResponse{
		Token: string(snap.Token),
		Stats: directory.StatsOf(snap.Document),
	})
}

func versionToken(c *fiber.Ctx) contentstore.Token {
	if token := c.Get(versionHeader); token != "" {
		return contentstore.Token(token)
	}
	return contentstore.Token(c.FormValue("token"))
}

func refFrom(c *fiber.Ctx) (directory.Ref, error) {
	index, err := c.ParamsInt("index")
	if err != nil {
		return directory.Ref{}, errors.NewValidationError("index must be a number", "index", c.Params("index"))
	}
	return directory.Ref{Index: index, ID: c.Query("id")}, nil
}

// formFile returns the named upload, or nil when the request carries none.
func formFile(c *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.NewValidationError("malformed upload", field, nil)
	}
	files := form.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}
	return files[0], nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}
