package web

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/kapu/parish-directory-go/internal/directory"
	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/kapu/parish-directory-go/pkg/errors"
)

type memberView struct {
	Index    int
	Name     string
	Phone    string
	Address  string
	Email    string
	Birthday string
	PhotoURL string
	Joined   string
}

type homeView struct {
	Title       string
	Unavailable bool
	Latest      *domain.Announcement
	Stats       directory.Stats
	Query       string
	Members     []memberView
}

func (s *Server) home(c *fiber.Ctx) error {
	snap := s.repo.LoadCached(c.UserContext())
	query := c.Query("q")

	view := homeView{
		Title:       s.cfg.DirectoryName,
		Unavailable: !snap.Available(),
		Stats:       directory.StatsOf(snap.Document),
		Query:       query,
	}
	if latest := directory.Latest(snap.Document.Messages); len(latest) > 0 {
		view.Latest = &latest[0].Announcement
	}
	for _, e := range directory.Browse(snap.Document.Members, query) {
		view.Members = append(view.Members, s.memberView(e))
	}

	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, view); err != nil {
		return errors.NewDirectoryError("failed to render directory page", errors.CodeDirectoryError, fiber.StatusInternalServerError, nil).WithCause(err)
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) memberView(e directory.Entry) memberView {
	m := e.Member
	view := memberView{
		Index:    e.Index,
		Name:     util.TitleWords(m.Name),
		Phone:    m.Phone,
		Address:  m.Address,
		Email:    m.Email,
		Birthday: m.Birthday,
		Joined:   m.Joined,
	}
	if m.HasPhoto() {
		view.PhotoURL = s.cfg.AssetURL(s.repo.PhotoPath(m.Photo))
	}
	return view
}

type membersResponse struct {
	Status  directory.Status  `json:"status"`
	Query   string            `json:"query,omitempty"`
	Total   int               `json:"total"`
	Members []directory.Entry `json:"members"`
}

func (s *Server) listMembers(c *fiber.Ctx) error {
	snap := s.repo.LoadCached(c.UserContext())
	entries := directory.Browse(snap.Document.Members, c.Query("q"))

	status := fiber.StatusOK
	if !snap.Available() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(membersResponse{
		Status:  snap.Status,
		Query:   c.Query("q"),
		Total:   len(snap.Document.Members),
		Members: entries,
	})
}

type announcementsResponse struct {
	Status        directory.Status              `json:"status"`
	Announcements []directory.AnnouncementEntry `json:"announcements"`
}

func (s *Server) listAnnouncements(c *fiber.Ctx) error {
	snap := s.repo.LoadCached(c.UserContext())

	status := fiber.StatusOK
	if !snap.Available() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(announcementsResponse{
		Status:        snap.Status,
		Announcements: directory.Latest(snap.Document.Messages),
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	cacheState := "disabled"
	if s.cfg.CacheHealthy != nil {
		cacheState = "ok"
		if !s.cfg.CacheHealthy(c.UserContext()) {
			cacheState = "down"
		}
	}
	return c.JSON(fiber.Map{"status": "ok", "cache": cacheState})
}
