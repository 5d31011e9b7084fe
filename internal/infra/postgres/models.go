package postgres

import (
	"time"

	"quiz-app-service/internal/domain"

	"github.com/uptrace/bun"
)

type categoryModel struct {
	bun.BaseModel `bun:"table:categories"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
	Icon        string    `bun:"icon,notnull"`
	Color       string    `bun:"color,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID          string          `bun:"id,pk"`
	Text        string          `bun:"text,notnull"`
	Options     []domain.Option `bun:"options,type:jsonb,notnull"`
	Explanation string          `bun:"explanation,notnull"`
	CategoryID  string          `bun:"category_id,notnull"`
	Difficulty  string          `bun:"difficulty,notnull"`
	CreatedAt   time.Time       `bun:"created_at,notnull"`
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID           string    `bun:"id,pk"`
	Title        string    `bun:"title,notnull"`
	Description  string    `bun:"description,notnull"`
	CategoryID   string    `bun:"category_id,notnull"`
	QuestionIDs  []string  `bun:"question_ids,type:jsonb,notnull"`
	TimeLimit    int       `bun:"time_limit,notnull"`
	CreatedBy    string    `bun:"created_by,notnull"`
	IsPublished  bool      `bun:"is_published,notnull"`
	Attempts     int       `bun:"attempts,notnull"`
	AverageScore float64   `bun:"average_score,notnull"`
	Version      int64     `bun:"version,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type userModel struct {
	bun.BaseModel `bun:"table:users"`

	ID             string           `bun:"id,pk"`
	Username       string           `bun:"username,notnull"`
	Email          string           `bun:"email,notnull"`
	PasswordHash   string           `bun:"password_hash,notnull"`
	ProfilePicture string           `bun:"profile_picture,notnull"`
	IsAdmin        bool             `bun:"is_admin,notnull"`
	Stats          domain.UserStats `bun:"stats,type:jsonb,notnull"`
	QuizzesTaken   []domain.Attempt `bun:"quizzes_taken,type:jsonb,notnull"`
	Version        int64            `bun:"version,notnull"`
	CreatedAt      time.Time        `bun:"created_at,notnull"`
}

func categoryFromDomain(c domain.Category) *categoryModel {
	return &categoryModel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
	}
}

func (m categoryModel) toDomain() domain.Category {
	return domain.Category{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		Color:       m.Color,
		CreatedAt:   m.CreatedAt,
	}
}

func questionFromDomain(q domain.Question) *questionModel {
	return &questionModel{
		ID:          q.ID,
		Text:        q.Text,
		Options:     q.Options,
		Explanation: q.Explanation,
		CategoryID:  q.CategoryID,
		Difficulty:  q.Difficulty,
		CreatedAt:   q.CreatedAt,
	}
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:          m.ID,
		Text:        m.Text,
		Options:     m.Options,
		Explanation: m.Explanation,
		CategoryID:  m.CategoryID,
		Difficulty:  m.Difficulty,
		CreatedAt:   m.CreatedAt,
	}
}

func quizFromDomain(q domain.Quiz) *quizModel {
	ids := q.QuestionIDs
	if ids == nil {
		ids = []string{}
	}
	return &quizModel{
		ID:           q.ID,
		Title:        q.Title,
		Description:  q.Description,
		CategoryID:   q.CategoryID,
		QuestionIDs:  ids,
		TimeLimit:    q.TimeLimit,
		CreatedBy:    q.CreatedBy,
		IsPublished:  q.IsPublished,
		Attempts:     q.Stats.Attempts,
		AverageScore: q.Stats.AverageScore,
		Version:      q.Stats.Version,
		CreatedAt:    q.CreatedAt,
	}
}

func (m quizModel) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CategoryID:  m.CategoryID,
		QuestionIDs: m.QuestionIDs,
		TimeLimit:   m.TimeLimit,
		CreatedBy:   m.CreatedBy,
		IsPublished: m.IsPublished,
		Stats: domain.QuizStats{
			Attempts:     m.Attempts,
			AverageScore: m.AverageScore,
			Version:      m.Version,
		},
		CreatedAt: m.CreatedAt,
	}
}

func userFromDomain(u domain.User) *userModel {
	stats := u.Stats
	if stats.CategoryPerformance == nil {
		stats.CategoryPerformance = map[string]domain.CategoryPerformance{}
	}
	history := u.Stats.History
	if history == nil {
		history = []domain.Attempt{}
	}
	return &userModel{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		ProfilePicture: u.ProfilePicture,
		IsAdmin:        u.IsAdmin,
		Stats:          stats,
		QuizzesTaken:   history,
		Version:        u.Stats.Version,
		CreatedAt:      u.CreatedAt,
	}
}

func (m userModel) toDomain() domain.User {
	stats := m.Stats
	if stats.CategoryPerformance == nil {
		stats.CategoryPerformance = map[string]domain.CategoryPerformance{}
	}
	stats.History = m.QuizzesTaken
	stats.Version = m.Version
	return domain.User{
		ID:             m.ID,
		Username:       m.Username,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		ProfilePicture: m.ProfilePicture,
		IsAdmin:        m.IsAdmin,
		Stats:          stats,
		CreatedAt:      m.CreatedAt,
	}
}
