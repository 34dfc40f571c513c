package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userRowColumns = []string{"id", "name", "email", "mobile", "password_hash", "created_at", "updated_at"}

const insertQ = `(?s)^WITH\s+created\s+AS\s*\(\s*INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*mobile,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id\s*\)\s*INSERT\s+INTO\s+user_keys\s*\(key,\s*user_id\)\s*SELECT\s+k,\s*created\.id\s+FROM\s+created,\s*unnest\(ARRAY\[\$3::text,\s*\$4::text\]\)\s+AS\s+k\s*$`

func sampleUser(now time.Time) *models.User {
	return &models.User{
		ID: "u-1", Name: "Alice", Email: "alice@example.com", Mobile: "1111111111",
		PasswordHash: []byte("hash"), CreatedAt: now,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(insertQ).
		WithArgs("u-1", "Alice", "alice@example.com", "1111111111", []byte("hash"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), sampleUser(now))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), sampleUser(time.Now()))
	if !errors.Is(err, common.ErrDuplicateIdentity) {
		t.Fatalf("want ErrDuplicateIdentity, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sampleUser(time.Now()))
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "Alice", "alice@example.com", "1111111111", []byte("hash"), created, updated)
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Name != "Alice" || !got.UpdatedAt.Equal(updated) || string(got.PasswordHash) != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByID_NullUpdatedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "Alice", "alice@example.com", "1111111111", []byte("hash"), time.Now(), nil)
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !got.UpdatedAt.IsZero() {
		t.Fatalf("expected zero UpdatedAt, got %v", got.UpdatedAt)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetIDByKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^SELECT user_id FROM user_keys WHERE key = \$1$`
	mock.ExpectQuery(q).WithArgs("1111111111").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectQuery(q).WithArgs("nobody").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("boom").WillReturnError(errors.New("db err"))

	id, err := repo.GetIDByKey(context.Background(), "1111111111")
	if err != nil || id != "u-1" {
		t.Fatalf("got %q, %v", id, err)
	}
	if _, err := repo.GetIDByKey(context.Background(), "nobody"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
	if _, err := repo.GetIDByKey(context.Background(), "boom"); err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	q := `(?s)^WITH\s+previous\s+AS\s*\(\s*SELECT\s+email\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*\),\s*rekeyed\s+AS\s*\(\s*UPDATE\s+user_keys\s+SET\s+key\s*=\s*\$3\s+WHERE.*\)\s*UPDATE\s+users\s+SET\s+name\s*=\s*COALESCE\(\$2,\s*name\),\s*email\s*=\s*COALESCE\(\$3,\s*email\),\s*updated_at\s*=\s*\$4\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,`
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	name := "Alicia"
	email := "new@example.com"

	t.Run("success", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		rows := sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "Alicia", "alice@example.com", "1111111111", []byte("hash"), at.Add(-time.Hour), at)
		mock.ExpectQuery(q).WithArgs("u-1", "Alicia", nil, at).WillReturnRows(rows)

		got, err := repo.UpdateProfile(context.Background(), "u-1", models.ProfileUpdate{Name: &name}, at)
		if err != nil {
			t.Fatalf("UpdateProfile error: %v", err)
		}
		if got.Name != "Alicia" || !got.UpdatedAt.Equal(at) {
			t.Fatalf("unexpected user: %+v", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs("ghost", nil, "new@example.com", at).WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateProfile(context.Background(), "ghost", models.ProfileUpdate{Email: &email}, at)
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want ErrorNotFound, got %v", err)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_keys_pkey"})

		_, err := repo.UpdateProfile(context.Background(), "u-1", models.ProfileUpdate{Email: &email}, at)
		if !errors.Is(err, common.ErrDuplicateIdentity) {
			t.Fatalf("want ErrDuplicateIdentity, got %v", err)
		}
	})
}

func TestList_InsertionOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "Alice", "a@x", "1", []byte("h"), now, nil).
		AddRow("u-2", "Bob", "b@x", "2", []byte("h"), now, nil)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+seq$`).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u-1" || got[1].ID != "u-2" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestList_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+ORDER\s+BY\s+seq`).WillReturnError(errors.New("db err"))

	if _, err := repo.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCountAndReset(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM users$`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`^DELETE FROM users$`).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	if err := repo.Reset(context.Background()); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
