package resets

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newMemoryStore(clock *fakeClock) (*Store, *memory.Manager) {
	m := memory.NewManager(clock.Now)
	return NewStore(m, 30*time.Minute, clock.Now), m
}

func TestIssue_ReturnsRawAndStoresHash(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)
	conn := m.Runner().Conn()

	raw, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), raw)

	_, err = m.ResetTokens(conn).Consume(ctx, raw, clock.now)
	assert.ErrorIs(t, err, common.ErrNotFound, "raw secret must not be stored")

	id, err := m.ResetTokens(conn).Consume(ctx, cryptox.HashToken(raw), clock.now)
	require.NoError(t, err)
	assert.Equal(t, "acc", id)
}

func TestConsume_SingleUse(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)
	conn := m.Runner().Conn()

	raw, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)

	id, err := s.Consume(ctx, conn, raw)
	require.NoError(t, err)
	assert.Equal(t, "acc", id)

	_, err = s.Consume(ctx, conn, raw)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConsume_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)
	conn := m.Runner().Conn()

	raw, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)

	clock.now = clock.now.Add(31 * time.Minute)
	_, err = s.Consume(ctx, conn, raw)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConsume_ValidJustBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)
	conn := m.Runner().Conn()

	raw, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)

	clock.now = clock.now.Add(29 * time.Minute)
	_, err = s.Consume(ctx, conn, raw)
	assert.NoError(t, err)
}

func TestIssue_SupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)
	conn := m.Runner().Conn()

	first, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)
	second, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = s.Consume(ctx, conn, first)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Consume(ctx, conn, second)
	assert.NoError(t, err)
}

func TestConsume_EmptySecret(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)

	_, err := s.Consume(context.Background(), m.Runner().Conn(), "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)
	conn := m.Runner().Conn()

	raw, err := s.Issue(ctx, conn, "acc")
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, conn, "acc"))

	_, err = s.Consume(ctx, conn, raw)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIssue_RandomFailure(t *testing.T) {
	orig := newSecret
	newSecret = func() (string, error) { return "", errors.New("no entropy") }
	defer func() { newSecret = orig }()

	clock := &fakeClock{now: time.Now()}
	s, m := newMemoryStore(clock)

	_, err := s.Issue(context.Background(), m.Runner().Conn(), "acc")
	assert.ErrorContains(t, err, "no entropy")
}

func TestStore_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	orig := newSecret
	newSecret = func() (string, error) { return "raw-secret", nil }
	defer func() { newSecret = orig }()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m, err := repomanager.NewPostgresRepositoryManager(db)
	require.NoError(t, err)
	s := NewStore(m, 30*time.Minute, func() time.Time { return now })

	mock.ExpectExec(`INSERT\s+INTO\s+reset_tokens`).
		WithArgs(sqlmock.AnyArg(), "acc", cryptox.HashToken("raw-secret"), now.Add(30*time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE\s+FROM\s+reset_tokens\s+WHERE\s+token_hash`).
		WithArgs(cryptox.HashToken("raw-secret"), now).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("acc"))
	mock.ExpectCommit()

	raw, err := s.Issue(context.Background(), m.Runner().Conn(), "acc")
	require.NoError(t, err)
	assert.Equal(t, "raw-secret", raw)

	var got string
	err = m.Runner().WithinTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		got, err = s.Consume(ctx, tx, raw)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "acc", got)
	require.NoError(t, mock.ExpectationsWereMet())
}
