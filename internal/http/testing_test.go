package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcards/internal/catalog"
	"github.com/mrlokans/bookcards/internal/completion"
	"github.com/mrlokans/bookcards/internal/database"
	"github.com/mrlokans/bookcards/internal/database/books"
	"github.com/mrlokans/bookcards/internal/database/flashcards"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/identity"
	"github.com/mrlokans/bookcards/internal/ingest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLimits = Limits{Books: 5, Flashcards: 10, RandomBooks: 5}

type testEnv struct {
	db      *database.Database
	catalog *catalog.Service
	ingest  *ingest.Service
}

// setupTestEnv wires the real stores and pipeline around a stub completer.
func setupTestEnv(t *testing.T, completer completion.Completer) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bookRepo := books.NewRepository(db.DB)
	cardRepo := flashcards.NewRepository(db.DB)

	return &testEnv{
		db:      db,
		catalog: catalog.NewService(bookRepo, cardRepo, 100),
		ingest: ingest.NewService(ingest.Dependencies{
			Completer:  completer,
			Resolver:   identity.NewResolver(bookRepo),
			Flashcards: cardRepo,
		}),
	}
}

func stubCompleter(response string) completion.Completer {
	return completion.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return response, nil
	})
}

func completionFor(title, author string, cards int) string {
	parts := make([]string, cards)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"question":"Q%d","answer":"A%d"}`, i+1, i+1)
	}
	return fmt.Sprintf(`{"title":%q,"author":%q,"language":"English","flashcards":[%s]}`, title, author, strings.Join(parts, ","))
}

func (e *testEnv) seed(t *testing.T, title, author string, cards int) *ingest.Result {
	t.Helper()
	svc := ingest.NewService(ingest.Dependencies{
		Completer:  stubCompleter(completionFor(title, author, cards)),
		Resolver:   identity.NewResolver(books.NewRepository(e.db.DB)),
		Flashcards: flashcards.NewRepository(e.db.DB),
	})
	result, err := svc.Ingest(context.Background(), title)
	require.NoError(t, err)
	return result
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func serve(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	router.ServeHTTP(w, req)
	return w
}

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) Ingest(ctx context.Context, title string) (*ingest.Result, error) {
	args := m.Called(ctx, title)
	result, _ := args.Get(0).(*ingest.Result)
	return result, args.Error(1)
}

type fakeQueue struct {
	enqueued []backlite.Task
	statuses map[string]backlite.TaskStatus
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, task backlite.Task) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, task)
	return fmt.Sprintf("task-%d", len(q.enqueued)), nil
}

func (q *fakeQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	if q.err != nil {
		return backlite.TaskStatusNotFound, q.err
	}
	status, ok := q.statuses[taskID]
	if !ok {
		return backlite.TaskStatusNotFound, nil
	}
	return status, nil
}

type fakeAudit struct {
	events []entities.AuditEvent
	called string
}

func (a *fakeAudit) GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error) {
	a.called = "all"
	return a.events, int64(len(a.events)), nil
}

func (a *fakeAudit) GetEventsByType(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	a.called = "type:" + string(eventType)
	return a.events, int64(len(a.events)), nil
}

func (a *fakeAudit) GetPartialWrites(limit, offset int) ([]entities.AuditEvent, int64, error) {
	a.called = "partial"
	return a.events, int64(len(a.events)), nil
}
