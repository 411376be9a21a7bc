package auth_test

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/solutionrh/go-auth"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	data, err := auth.GetMigrationsFS().ReadFile("data/sql/migrations/20250101000000_create_auth_tables.up.sql")
	require.NoError(t, err)

	// drop comment lines before splitting so a ";" inside a comment
	// does not produce a bogus statement
	var sqlOnly []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		sqlOnly = append(sqlOnly, line)
	}

	for _, stmt := range strings.Split(strings.Join(sqlOnly, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err = bunDB.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	return bunDB
}

func setupRepoManager(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(setupTestDB(t))
}

func seedUser(t *testing.T, repo auth.RepositoryManager, username, password string, roles ...string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &auth.User{
		Username:     username,
		PasswordHash: hash,
		Roles:        auth.RoleList(roles),
	})
	require.NoError(t, err)

	return user
}

func seedEmployer(t *testing.T, repo auth.RepositoryManager, email, password string, status auth.AccountStatus) *auth.Employer {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	employer, err := repo.Employers().Create(context.Background(), &auth.Employer{
		CompanyName:       "Test SARL",
		Ninea:             "NINEA-" + email,
		FirstName:         "Awa",
		LastName:          "Diop",
		ProfessionalPhone: "+221771234567",
		ProfessionalEmail: email,
		PasswordHash:      hash,
		Roles:             auth.RoleList{auth.RoleEmployer},
		AccountStatus:     status,
	})
	require.NoError(t, err)

	return employer
}

// memorySink records activity events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *memorySink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) byType(eventType auth.ActivityEventType) []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []auth.ActivityEvent
	for _, event := range s.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

const (
	testAccessTTL  = time.Hour
	testRefreshTTL = 24 * time.Hour
)

func newTokenService(t *testing.T) auth.TokenService {
	t.Helper()
	key := bytes.Repeat([]byte("k"), auth.MinSigningKeyBytes)
	return auth.NewTokenService(key, testAccessTTL, testRefreshTTL, "test-issuer", nil)
}

func makeFileHeader(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	headers := form.File[field]
	require.Len(t, headers, 1)
	return headers[0]
}
