package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// setupTestDB connects to the test database or skips the test. The schema in
// database/schema.sql is expected to be applied already.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost/opportunity_board_test?sslmode=disable"
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Skipf("Skipping integration tests - database not available: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Skipf("Skipping integration tests - database ping failed: %v", err)
		return nil
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// createTestMember inserts a member row and registers cleanup. Deleting the
// member cascades to their opportunities and everything below those.
func createTestMember(t *testing.T, db *sql.DB, role string, slackUserID *string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO members (id, email, first_name, last_name, role, slack_user_id)
		VALUES ($1, $2, 'Test', 'Member', $3, $4)
	`, id, fmt.Sprintf("%s@test.local", id), role, slackUserID)
	if err != nil {
		t.Fatalf("failed to insert test member: %v", err)
	}

	t.Cleanup(func() {
		db.Exec(`DELETE FROM members WHERE id = $1`, id)
	})
	return id
}

func createTestSlackMessage(t *testing.T, db *sql.DB, channelID, messageID, userID, text string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO slack_messages (channel_id, message_id, user_id, text)
		VALUES ($1, $2, $3, $4)
	`, channelID, messageID, userID, text)
	if err != nil {
		t.Fatalf("failed to insert test slack message: %v", err)
	}

	t.Cleanup(func() {
		db.Exec(`DELETE FROM slack_messages WHERE channel_id = $1 AND message_id = $2`, channelID, messageID)
	})
}

func uniqueTestLink(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("https://jobs.test/%s", uuid.New())
}

// stubFetcher returns canned content and counts calls.
type stubFetcher struct {
	content string
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

// stubCompletion returns a canned AI completion.
type stubCompletion struct {
	completion string
	err        error
}

func (c *stubCompletion) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.completion, nil
}

// stubNotifier records sent messages.
type stubNotifier struct {
	channelMessages []string
	threadIDs       []string
	directMessages  []string
}

func (n *stubNotifier) SendToChannel(ctx context.Context, channelID, threadID, text string) error {
	n.channelMessages = append(n.channelMessages, text)
	n.threadIDs = append(n.threadIDs, threadID)
	return nil
}

func (n *stubNotifier) SendDirect(ctx context.Context, userID, text string) error {
	n.directMessages = append(n.directMessages, text)
	return nil
}

// stubAnalytics records tracked event names.
type stubAnalytics struct {
	events []string
}

func (a *stubAnalytics) Track(ctx context.Context, memberID uuid.UUID, event string, properties map[string]interface{}) error {
	a.events = append(a.events, event)
	return nil
}

// stubEnqueuer records enqueued job names.
type stubEnqueuer struct {
	jobs []string
}

func (e *stubEnqueuer) Enqueue(jobName string, payload interface{}) error {
	e.jobs = append(e.jobs, jobName)
	return nil
}
