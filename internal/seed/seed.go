// Package seed fills the database with demo data for development and testing.
// Content goes through the repositories so counters stay consistent with rows.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lufeed/internal/cache"
	"lufeed/internal/database"
	"lufeed/internal/models"
	"lufeed/internal/observability"
	"lufeed/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Shares   int
}

// Seeder generates demo users and feed content.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	now      func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		likes:    repository.NewLikeRepository(db),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ClearAll deletes every row of every persistent model.
func (s *Seeder) ClearAll(ctx context.Context) error {
	observability.Logger.InfoContext(ctx, "clearing existing data")

	modelsList := database.PersistentModels()
	// children first
	for i := len(modelsList) - 1; i >= 0; i-- {
		if err := s.db.WithContext(ctx).Where("1 = 1").Delete(modelsList[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", modelsList[i], err)
		}
	}

	cache.InvalidatePosts(ctx)
	cache.InvalidateShared(ctx)
	return nil
}

// Run generates the data described by p.
func (s *Seeder) Run(ctx context.Context, p Preset) (Summary, error) {
	if err := p.Validate(); err != nil {
		return Summary{}, err
	}

	faker := gofakeit.New(p.Seed)
	var sum Summary

	users, err := s.createUsers(ctx, faker, p.Users)
	if err != nil {
		return sum, fmt.Errorf("failed to create users: %w", err)
	}
	sum.Users = len(users)

	posts, err := s.createPosts(ctx, faker, users, p)
	if err != nil {
		return sum, fmt.Errorf("failed to create posts: %w", err)
	}
	sum.Posts = len(posts)

	for _, post := range posts {
		n, err := s.createComments(ctx, faker, users, post, p.MaxCommentsPerPost)
		if err != nil {
			return sum, fmt.Errorf("failed to create comments: %w", err)
		}
		sum.Comments += n

		n, err = s.createLikes(ctx, faker, users, post, p.LikeProbability)
		if err != nil {
			return sum, fmt.Errorf("failed to create likes: %w", err)
		}
		sum.Likes += n
	}

	for range p.Shares {
		post := posts[faker.Number(0, len(posts)-1)]
		sharer := users[faker.Number(0, len(users)-1)]
		at := s.after(faker, post.CreatedAt)

		shared := models.NewSharedPost(post.Snapshot(), sharer.Session().Sharer(), faker.Sentence(6), at)
		if err := s.posts.CreateShared(ctx, shared); err != nil {
			return sum, fmt.Errorf("failed to create share: %w", err)
		}
		sum.Shares++
	}

	observability.Logger.InfoContext(ctx, "seeding completed",
		"preset", p.Name,
		"users", sum.Users,
		"posts", sum.Posts,
		"comments", sum.Comments,
		"likes", sum.Likes,
		"shares", sum.Shares,
	)
	return sum, nil
}

func (s *Seeder) createUsers(ctx context.Context, faker *gofakeit.Faker, n int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := range n {
		first, last := faker.FirstName(), faker.LastName()
		user := &models.User{
			UID:          uuid.NewString(),
			DisplayName:  first + " " + last,
			Email:        strings.ToLower(fmt.Sprintf("%s.%s%d@campus.example", first, last, i+1)),
			PasswordHash: string(hashed),
			PhotoURL:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", faker.UUID()),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(ctx context.Context, faker *gofakeit.Faker, users []*models.User, p Preset) ([]*models.Post, error) {
	maxDays := p.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	categories := p.categories()
	now := s.now()

	posts := make([]*models.Post, 0, p.Posts)
	for range p.Posts {
		author := users[faker.Number(0, len(users)-1)]
		at := now.Add(-time.Duration(faker.Number(0, maxDays*24*60)) * time.Minute)

		post := &models.Post{
			ID:           models.NewPostID(author.UID, at),
			Title:        strings.TrimSuffix(faker.Sentence(5), "."),
			Category:     categories[faker.Number(0, len(categories)-1)],
			Caption:      faker.Paragraph(1, 3, 12, " "),
			ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID()),
			AuthorID:     author.UID,
			AuthorName:   author.DisplayName,
			AuthorAvatar: author.PhotoURL,
			CreatedAt:    at,
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) createComments(ctx context.Context, faker *gofakeit.Faker, users []*models.User, post *models.Post, maxComments int) (int, error) {
	if maxComments <= 0 {
		return 0, nil
	}

	n := faker.Number(0, maxComments)
	for range n {
		author := users[faker.Number(0, len(users)-1)]
		at := s.after(faker, post.CreatedAt)
		comment := &models.Comment{
			ID:         models.NewCommentID(post.ID, at),
			PostID:     post.ID,
			AuthorID:   author.UID,
			AuthorName: author.DisplayName,
			Text:       faker.Sentence(faker.Number(3, 12)),
			CreatedAt:  at,
		}
		if err := s.comments.CreateWithCounter(ctx, models.KindPost, comment); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (s *Seeder) createLikes(ctx context.Context, faker *gofakeit.Faker, users []*models.User, post *models.Post, probability float64) (int, error) {
	n := 0
	for _, user := range users {
		if faker.Float64() >= probability {
			continue
		}
		liked, _, err := s.likes.Toggle(ctx, models.KindPost, post.ID, user.UID, s.after(faker, post.CreatedAt))
		if err != nil {
			return n, err
		}
		if liked {
			n++
		}
	}
	return n, nil
}

// after returns a random instant between t and now.
func (s *Seeder) after(faker *gofakeit.Faker, t time.Time) time.Time {
	span := s.now().Sub(t)
	if span <= time.Minute {
		return t
	}
	return t.Add(time.Duration(faker.Number(1, int(span/time.Minute))) * time.Minute)
}
