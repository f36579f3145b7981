package service

import (
	"strings"
	"time"

	"civicconnect/internal/models"
)

const anonymousName = "Anonymous"

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(p Page, total int) Pagination {
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages(total, p.Limit)}
}

// AdminPagination is the paging block used by the admin and staff listings.
type AdminPagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
	Limit       int `json:"limit"`
}

func newAdminPagination(p Page, total int) AdminPagination {
	return AdminPagination{CurrentPage: p.Page, TotalPages: pages(total, p.Limit), TotalItems: total, Limit: p.Limit}
}

func pages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

type UserView struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email,omitempty"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Phone         string     `json:"phone,omitempty"`
	Location      string     `json:"location,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	ProfileImage  *string    `json:"profile_image"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// userView renders u. Contact details are kept only when private is set.
func (s *Service) userView(u models.User, private bool) UserView {
	v := UserView{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Location:      u.Location,
		Bio:           u.Bio,
		ProfileImage:  s.fileURL(u.ProfileImage),
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
	if private {
		v.Email = u.Email
		v.Phone = u.Phone
		v.LastLogin = u.LastLogin
	}
	return v
}

type IssueView struct {
	ID             int64     `json:"id"`
	UserID         *int64    `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Location       string    `json:"location,omitempty"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	IsAnonymous    bool      `json:"is_anonymous"`
	ImageURL       *string   `json:"image_url"`
	UpvoteCount    int       `json:"upvote_count"`
	CommentCount   int       `json:"comment_count"`
	UserHasUpvoted bool      `json:"user_has_upvoted"`
	IsOwner        bool      `json:"is_owner"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	UserName       string    `json:"user_name"`
	ProfileImage   *string   `json:"profile_image"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// issueView renders it for viewerID. Anonymous issues never carry the
// author's id, name or picture, whoever is asking.
func (s *Service) issueView(it models.Issue, viewerID int64, upvoted bool) IssueView {
	v := IssueView{
		ID:             it.ID,
		Title:          it.Title,
		Description:    it.Description,
		Category:       it.Category,
		Location:       it.Location,
		Latitude:       it.Latitude,
		Longitude:      it.Longitude,
		Priority:       it.Priority,
		Status:         it.Status,
		IsAnonymous:    it.IsAnonymous,
		ImageURL:       s.fileURL(it.ImagePath),
		UpvoteCount:    it.UpvoteCount,
		CommentCount:   it.CommentCount,
		UserHasUpvoted: upvoted,
		IsOwner:        OwnsResource(viewerID, it.UserID),
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
	if it.IsAnonymous {
		v.FirstName, v.UserName = anonymousName, anonymousName
		return v
	}
	uid := it.UserID
	v.UserID = &uid
	v.FirstName, v.LastName = it.AuthorFirstName, it.AuthorLastName
	v.UserName = strings.TrimSpace(it.AuthorFirstName + " " + it.AuthorLastName)
	v.ProfileImage = s.fileURL(it.AuthorImage)
	return v
}

type CommentView struct {
	ID           int64     `json:"id"`
	IssueID      int64     `json:"issue_id"`
	UserID       *int64    `json:"user_id"`
	Content      string    `json:"content"`
	IsAnonymous  bool      `json:"is_anonymous"`
	IsOwner      bool      `json:"is_owner"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	UserName     string    `json:"user_name"`
	ProfileImage *string   `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Service) commentView(c models.Comment, viewerID int64) CommentView {
	v := CommentView{
		ID:          c.ID,
		IssueID:     c.IssueID,
		Content:     c.Content,
		IsAnonymous: c.IsAnonymous,
		IsOwner:     OwnsResource(viewerID, c.UserID),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.IsAnonymous {
		v.FirstName, v.UserName = anonymousName, anonymousName
		return v
	}
	uid := c.UserID
	v.UserID = &uid
	v.FirstName, v.LastName = c.AuthorFirstName, c.AuthorLastName
	v.UserName = strings.TrimSpace(c.AuthorFirstName + " " + c.AuthorLastName)
	v.ProfileImage = s.fileURL(c.AuthorImage)
	return v
}

type UpvoteView struct {
	ID        int64     `json:"id"`
	IssueID   int64     `json:"issue_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationView struct {
	ID         int64     `json:"id"`
	IssueID    *int64    `json:"issue_id"`
	IssueTitle string    `json:"issue_title,omitempty"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// fileURL turns a stored relative path into a public URL.
func (s *Service) fileURL(path string) *string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return &path
	}
	u := s.cfg.PublicBaseURL + "/uploads/" + strings.TrimLeft(path, "/")
	return &u
}
