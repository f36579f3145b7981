package models

import "time"

const (
	RoleCitizen = "citizen"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

var Priorities = []string{"low", "medium", "high", "critical"}

type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Phone           string
	Location        string
	Bio             string
	ProfileImage    string
	Role            string
	IsActive        bool
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	OTPCode         string
	OTPExpiresAt    *time.Time
	OTPAttempts     int
	LastLogin       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Session struct {
	ID            string
	UserID        int64
	TokenHash     string
	IPHint        string
	UserAgentHash string
	ExpiresAt     time.Time
	IdleExpiresAt time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
	RevokedAt     *time.Time
}

// Issue is a stored report. Author fields are filled from the users join.
type Issue struct {
	ID           int64
	UserID       int64
	Title        string
	Description  string
	Category     string
	Location     string
	Latitude     *float64
	Longitude    *float64
	Priority     string
	Status       string
	IsAnonymous  bool
	ImagePath    string
	UpvoteCount  int
	CommentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time

	AuthorFirstName string
	AuthorLastName  string
	AuthorImage     string
}

type Comment struct {
	ID          int64
	IssueID     int64
	UserID      int64
	Content     string
	IsAnonymous bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	AuthorFirstName string
	AuthorLastName  string
	AuthorImage     string
}

type Upvote struct {
	ID        int64
	IssueID   int64
	UserID    int64
	CreatedAt time.Time
	FirstName string
	LastName  string
}

type Notification struct {
	ID         int64
	UserID     int64
	IssueID    *int64
	Type       string
	Title      string
	Message    string
	OldStatus  string
	NewStatus  string
	IsRead     bool
	CreatedAt  time.Time
	IssueTitle string
}

type AuditEntry struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   *int64    `json:"entity_id"`
	OldValues  string    `json:"old_values,omitempty"`
	NewValues  string    `json:"new_values,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ActorEmail string    `json:"user_email,omitempty"`
	ActorName  string    `json:"user_name,omitempty"`
}

type IssueQuery struct {
	Category string
	Status   string
	Priority string
	Search   string
	SortBy   string
	Order    string
	// OwnerID restricts to one author; zero means all.
	OwnerID          int64
	IncludeAnonymous bool
	Limit            int
	Offset           int
}

type UserQuery struct {
	Search string
	Role   string
	Limit  int
	Offset int
}

type CommentQuery struct {
	IssueID int64
	Asc     bool
	Limit   int
	Offset  int
}

type NotificationQuery struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
	Offset     int
}

type AdminStats struct {
	UsersTotal          int            `json:"users_total"`
	UsersByRole         map[string]int `json:"users_by_role"`
	IssuesTotal         int            `json:"issues_total"`
	IssuesByStatus      map[string]int `json:"issues_by_status"`
	RecentActivityCount int            `json:"recent_activity_count"`
}
