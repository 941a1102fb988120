// Command seed provisions a database with a demo dataset: an admin
// account, a regular account, a sample project with a few files, and a
// short chat history. Existing usernames are left untouched, so the tool
// is safe to rerun.
package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/projecthub/backend/internal/logger"
	chatmodel "github.com/zhouzirui/projecthub/backend/internal/model/chat"
	filemodel "github.com/zhouzirui/projecthub/backend/internal/model/file"
	projectmodel "github.com/zhouzirui/projecthub/backend/internal/model/project"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	"github.com/zhouzirui/projecthub/backend/internal/store/mgo"
)

const readmeContent = `# Demo Project

Welcome to the demo project! This showcases file management and markdown rendering.

## Features

- **File Upload**: Upload various file types
- **Markdown Support**: Full markdown rendering with syntax highlighting
- **Code Files**: View code with syntax highlighting
`

const fibonacciContent = `def fibonacci(n):
    """Generate Fibonacci sequence up to n numbers"""
    fib = [0, 1]
    while len(fib) < n:
        fib.append(fib[-1] + fib[-2])
    return fib

if __name__ == "__main__":
    print(fibonacci(10))
`

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warnf("failed to load .env file: %v", err)
	}

	uri := strings.TrimSpace(os.Getenv("MONGO_URI"))
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	database := strings.TrimSpace(os.Getenv("MONGO_DATABASE"))
	if database == "" {
		database = "projectsdb"
	}

	client, err := mgo.Dial(ctx, uri, database)
	if err != nil {
		logger.Fatalf("failed to connect mongodb: %v", err)
	}
	defer client.Close(context.Background())

	users := client.Users()

	adminID, err := seedUser(ctx, users, "admin", "admin@example.com", "admin123", user.RoleAdmin)
	if err != nil {
		logger.Fatalf("seed admin: %v", err)
	}
	demoID, err := seedUser(ctx, users, "demo", "", "demo123", user.RoleUser)
	if err != nil {
		logger.Fatalf("seed demo user: %v", err)
	}

	if err := seedProject(ctx, client, adminID); err != nil {
		logger.Fatalf("seed project: %v", err)
	}
	if err := seedChat(ctx, client, adminID, demoID); err != nil {
		logger.Fatalf("seed chat: %v", err)
	}

	logger.Infof("seeding complete")
}

// seedUser creates the account unless the username is already taken, and
// returns the account id either way.
func seedUser(ctx context.Context, users *mgo.UserStore, username, email, password, role string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) || errors.Is(err, user.ErrEmailTaken) {
			existing, findErr := users.FindByUsername(ctx, username)
			if findErr != nil {
				return "", findErr
			}
			logger.Infof("user %s already exists, skipping", username)
			return existing.ID, nil
		}
		return "", err
	}

	logger.Infof("created user %s (role %s)", username, role)
	return u.ID, nil
}

func seedProject(ctx context.Context, client *mgo.Client, createdBy string) error {
	now := time.Now().UTC()
	p := projectmodel.Project{
		ID:          uuid.NewString(),
		Name:        "Demo Project",
		Description: "A demonstration project with various file types",
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
	if err := client.Projects().Create(ctx, p); err != nil {
		return err
	}

	files := []filemodel.File{
		{Name: "README.md", Content: readmeContent, FileType: "md"},
		{Name: "fibonacci.py", Content: fibonacciContent, FileType: "py"},
	}
	for _, f := range files {
		f.ID = uuid.NewString()
		f.ProjectID = p.ID
		f.CreatedAt = now
		f.UpdatedAt = now
		if err := client.Files().Create(ctx, f); err != nil {
			return err
		}
		logger.Infof("created file %s", f.Name)
	}

	logger.Infof("created project %s", p.Name)
	return nil
}

func seedChat(ctx context.Context, client *mgo.Client, adminID, demoID string) error {
	now := time.Now().UTC()
	messages := []chatmodel.Message{
		{UserID: adminID, Username: "admin", Message: "Welcome to the project chat!", Timestamp: now.Add(-2 * time.Minute)},
		{UserID: demoID, Username: "demo", Message: "Thanks! Happy to be here.", Timestamp: now.Add(-1 * time.Minute)},
	}
	for _, m := range messages {
		m.ID = uuid.NewString()
		if err := client.Messages().Append(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
