package domain

// Member is one directory entry. Name, Phone and Address are always present on records
// created by this service; legacy records may lack anything, so readers must not assume.
type Member struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Email    string `json:"email,omitempty"`
	Birthday string `json:"birthday,omitempty"`
	Photo    string `json:"photo,omitempty"`
	Joined   string `json:"joined"`
}

// NewMember is the admin input for adding a member.
type NewMember struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Phone    string `json:"phone" form:"phone" validate:"required"`
	Address  string `json:"address" form:"address" validate:"required"`
	Email    string `json:"email,omitempty" form:"email"`
	Birthday string `json:"birthday,omitempty" form:"birthday"`
	Photo    string `json:"photo,omitempty" form:"-"`
}

// HasPhoto reports whether Photo names an uploaded file. The old admin page wrote the
// marker "Photo upload failed" into the field instead of leaving it empty.
func (m Member) HasPhoto() bool {
	return m.Photo != "" && m.Photo != legacyFailedPhoto && m.Photo != legacyNoPhoto
}

const (
	legacyFailedPhoto = "Photo upload failed"
	legacyNoPhoto     = "No photo"
)
