package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/auth"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/postgres"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type catalogStore interface {
	app.CategoryRepository
	app.QuestionRepository
	app.QuizRepository
	app.UserRepository
}

// NewSeedCmd loads the sample catalogue and accounts into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample categories, questions, quizzes and users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured; the in-memory store seeds itself on start")
			}
			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			return seedCatalog(cmd.Context(), postgres.NewStore(db), seedPassword())
		},
	}
}

// seedPassword is the password of the seeded accounts, SEED_PASSWORD or "password".
func seedPassword() string {
	if v := os.Getenv("SEED_PASSWORD"); v != "" {
		return v
	}
	return "password"
}

// seedCatalog inserts the sample data. Records that already exist are left untouched.
func seedCatalog(ctx context.Context, store catalogStore, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	created := 0

	insert := func(kind, id string, err error) error {
		switch {
		case err == nil:
			created++
			return nil
		case errors.Is(err, domain.ErrDuplicate):
			logrus.WithFields(logrus.Fields{"kind": kind, "id": id}).Debug("seed record exists")
			return nil
		}
		return fmt.Errorf("seed %s %s: %w", kind, id, err)
	}

	for _, u := range seedUsers {
		user := domain.User{
			ID:           u.id,
			Username:     u.username,
			Email:        u.email,
			PasswordHash: hash,
			IsAdmin:      u.admin,
			Stats:        domain.UserStats{CategoryPerformance: map[string]domain.CategoryPerformance{}},
			CreatedAt:    now,
		}
		if err := insert("user", u.id, store.CreateUser(ctx, user)); err != nil {
			return err
		}
	}

	for i, sc := range seedCategories {
		category := domain.Category{
			ID:          sc.id,
			Name:        sc.name,
			Description: sc.description,
			Icon:        sc.icon,
			Color:       sc.color,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		}
		if err := insert("category", sc.id, store.CreateCategory(ctx, category)); err != nil {
			return err
		}

		quiz := domain.Quiz{
			ID:          sc.quiz.id,
			Title:       sc.quiz.title,
			Description: sc.quiz.description,
			CategoryID:  sc.id,
			TimeLimit:   app.DefaultTimeLimit,
			CreatedBy:   seedUsers[0].id,
			IsPublished: true,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		}
		for j, sq := range sc.quiz.questions {
			q := sq.question(fmt.Sprintf("%s-q%d", sc.quiz.id, j+1), sc.id, sc.quiz.difficulty, now)
			if err := domain.ValidateQuestion(q); err != nil {
				return fmt.Errorf("seed question %s: %w", q.ID, err)
			}
			if _, err := store.GetQuestion(ctx, q.ID); err == nil {
				quiz.QuestionIDs = append(quiz.QuestionIDs, q.ID)
				continue
			}
			if err := insert("question", q.ID, store.CreateQuestion(ctx, q)); err != nil {
				return err
			}
			quiz.QuestionIDs = append(quiz.QuestionIDs, q.ID)
		}
		if _, err := store.GetQuiz(ctx, quiz.ID); err == nil {
			continue
		}
		if err := insert("quiz", quiz.ID, store.CreateQuiz(ctx, quiz)); err != nil {
			return err
		}
	}

	logrus.WithField("created", created).Info("sample data seeded")
	return nil
}

type seedUser struct {
	id, username, email string
	admin               bool
}

type seedQuestion struct {
	text        string
	options     [domain.OptionsPerQuestion]string
	correct     int
	explanation string
}

func (s seedQuestion) question(id, categoryID, difficulty string, now time.Time) domain.Question {
	q := domain.Question{
		ID:          id,
		Text:        s.text,
		Explanation: s.explanation,
		CategoryID:  categoryID,
		Difficulty:  difficulty,
		CreatedAt:   now,
	}
	for i, text := range s.options {
		q.Options = append(q.Options, domain.Option{
			ID:      fmt.Sprintf("%s-o%d", id, i+1),
			Text:    text,
			Correct: i == s.correct,
		})
	}
	return q
}

type seedQuiz struct {
	id, title, description, difficulty string
	questions                          []seedQuestion
}

type seedCategory struct {
	id, name, description, icon, color string
	quiz                               seedQuiz
}

var seedUsers = []seedUser{
	{id: "seed-admin", username: "admin", email: "admin@example.com", admin: true},
	{id: "seed-testuser", username: "testuser", email: "test@example.com"},
}

var seedCategories = []seedCategory{
	{
		id: "science", name: "Science", description: "General science concepts", icon: "flask", color: "#4287f5",
		quiz: seedQuiz{
			id: "basic-science", title: "Basic Science Quiz", description: "Test your knowledge of general science concepts", difficulty: domain.DifficultyEasy,
			questions: []seedQuestion{
				{"What is the chemical symbol for water?", [4]string{"H2O", "CO2", "NaCl", "O2"}, 0, "Water is composed of two hydrogen atoms (H) and one oxygen atom (O)."},
				{"Which planet is known as the Red Planet?", [4]string{"Venus", "Mars", "Jupiter", "Saturn"}, 1, "Mars appears red because of iron oxide (rust) on its surface."},
				{"What is the largest organ in the human body?", [4]string{"Heart", "Liver", "Skin", "Brain"}, 2, "The skin is the largest organ, covering about 2 square meters in adults."},
				{"Which gas do plants absorb from the atmosphere?", [4]string{"Oxygen", "Carbon Dioxide", "Nitrogen", "Hydrogen"}, 1, "Plants absorb carbon dioxide during photosynthesis to produce glucose and oxygen."},
				{"What is the basic unit of life?", [4]string{"Atom", "Cell", "Molecule", "Tissue"}, 1, "Cells are the basic structural and functional units of all living organisms."},
			},
		},
	},
	{
		id: "math", name: "Math", description: "Numbers, equations and problem solving", icon: "calculator", color: "#f54242",
		quiz: seedQuiz{
			id: "algebra-basics", title: "Algebra Basics", description: "Fundamental algebra concepts and problem solving", difficulty: domain.DifficultyMedium,
			questions: []seedQuestion{
				{"What is the value of pi to two decimal places?", [4]string{"3.14", "3.16", "3.12", "3.18"}, 0, "Pi is approximately 3.14159, which rounds to 3.14."},
				{"Solve for x: 2x + 5 = 13", [4]string{"x = 3", "x = 4", "x = 5", "x = 6"}, 1, "Subtracting 5 from both sides gives 2x = 8, so x = 4."},
				{"What is the square root of 81?", [4]string{"8", "9", "10", "12"}, 1, "9 x 9 = 81, so the square root of 81 is 9."},
				{"If x = 3 and y = 4, what is the value of x^2 + y^2?", [4]string{"7", "12", "25", "49"}, 2, "3^2 + 4^2 = 9 + 16 = 25."},
			},
		},
	},
	{
		id: "history", name: "History", description: "Events that shaped our world", icon: "scroll", color: "#42f59e",
		quiz: seedQuiz{
			id: "world-history", title: "World History", description: "Historical events that shaped our world", difficulty: domain.DifficultyMedium,
			questions: []seedQuestion{
				{"In what year did World War II end?", [4]string{"1943", "1945", "1947", "1950"}, 1, "World War II ended in 1945 with the surrender of Germany in May and Japan in September."},
				{"Who was the first President of the United States?", [4]string{"Thomas Jefferson", "John Adams", "George Washington", "Benjamin Franklin"}, 2, "George Washington served as the first President from 1789 to 1797."},
				{"Which ancient civilization built the pyramids at Giza?", [4]string{"Greeks", "Romans", "Mayans", "Egyptians"}, 3, "The ancient Egyptians built the pyramids at Giza between 2550 and 2490 BCE."},
				{"The Industrial Revolution began in which country?", [4]string{"United States", "France", "Germany", "Great Britain"}, 3, "The Industrial Revolution began in Great Britain in the late 18th century."},
				{"The French Revolution began in which year?", [4]string{"1776", "1789", "1798", "1804"}, 1, "The French Revolution began in 1789 with the storming of the Bastille on July 14."},
			},
		},
	},
	{
		id: "computer-science", name: "Computer Science", description: "Programming and computing fundamentals", icon: "laptop-code", color: "#f5a442",
		quiz: seedQuiz{
			id: "programming-fundamentals", title: "Programming Fundamentals", description: "Essential programming concepts", difficulty: domain.DifficultyHard,
			questions: []seedQuestion{
				{"What does CPU stand for?", [4]string{"Central Processing Unit", "Computer Personal Unit", "Central Process Utility", "Central Processor Unifier"}, 0, "CPU stands for Central Processing Unit, the main processor in a computer."},
				{"What is the smallest unit of digital information?", [4]string{"Byte", "Bit", "Nibble", "Word"}, 1, "A bit is the smallest unit of digital information, either 0 or 1."},
				{"Which data structure operates on a Last-In-First-Out principle?", [4]string{"Queue", "Linked List", "Stack", "Tree"}, 2, "A stack removes the most recently added element first."},
				{"What does SQL stand for?", [4]string{"Structured Query Language", "Simple Question Language", "Standard Query Logic", "System Quality Level"}, 0, "SQL stands for Structured Query Language, used to manage relational databases."},
				{"What does API stand for?", [4]string{"Application Programming Interface", "Automated Program Interaction", "Advanced Protocol Interface", "Application Process Integration"}, 0, "An Application Programming Interface lets software components communicate."},
			},
		},
	},
}
