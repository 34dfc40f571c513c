package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type onlineSet map[string]bool

func (s onlineSet) IsOnline(id string) bool { return s[id] }

func strPtr(s string) *string { return &s }

func newDirectory(t *testing.T, online OnlineChecker) *Directory {
	t.Helper()
	return New(users.NewMemoryRepository(), online, logging.Nop())
}

func mustRegister(t *testing.T, d *Directory, name, email, mobile string) models.PublicUser {
	t.Helper()
	u, err := d.Register(context.Background(), name, email, mobile, []byte("hash"))
	require.NoError(t, err)
	return u
}

func TestRegister_NormalizesAndHidesSecret(t *testing.T) {
	d := newDirectory(t, nil)

	u := mustRegister(t, d, "  Alice Johnson ", " Alice@Example.COM ", " 1111111111 ")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Alice Johnson", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "1111111111", u.Mobile)
	assert.False(t, u.CreatedAt.IsZero())

	full, err := d.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), full.PasswordHash)
}

func TestRegister_Duplicates(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, nil)
	mustRegister(t, d, "Alice", "alice@example.com", "1111111111")

	_, err := d.Register(ctx, "Other", "ALICE@example.com ", "999", nil)
	assert.ErrorIs(t, err, common.ErrDuplicateIdentity)

	_, err = d.Register(ctx, "Other", "other@example.com", " 1111111111", nil)
	assert.ErrorIs(t, err, common.ErrDuplicateIdentity)

	n, _ := d.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestRegister_Validation(t *testing.T) {
	d := newDirectory(t, nil)

	_, err := d.Register(context.Background(), "  ", "a@x", "1", nil)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestRegister_ConcurrentSameEmailSingleWinner(t *testing.T) {
	d := newDirectory(t, nil)

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := d.Register(context.Background(), "X", "race@example.com", fmt.Sprintf("m-%d", i), nil)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, common.ErrDuplicateIdentity)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestUpdateProfile_EmailRepoint(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, nil)
	alice := mustRegister(t, d, "Alice", "old@x.io", "1111111111")

	before := time.Now()
	u, err := d.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: strPtr(" NEW@x.io ")})
	require.NoError(t, err)
	assert.Equal(t, "new@x.io", u.Email)
	assert.Equal(t, "Alice", u.Name)
	assert.False(t, u.UpdatedAt.Before(before))

	_, err = d.AuthenticateLookup(ctx, "old@x.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	id, err := d.AuthenticateLookup(ctx, "new@x.io")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)
}

func TestUpdateProfile_NameAndBlankName(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, nil)
	alice := mustRegister(t, d, "Alice", "a@x.io", "1")

	u, err := d.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Name: strPtr("  Alicia ")})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.Name)

	u, err = d.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Name: strPtr("   ")})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.Name, "blank name is ignored")
}

func TestUpdateProfile_SameEmailDifferentCase(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, nil)
	alice := mustRegister(t, d, "Alice", "a@x.io", "1")

	u, err := d.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: strPtr("A@X.IO")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", u.Email)
}

func TestUpdateProfile_Errors(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, nil)
	alice := mustRegister(t, d, "Alice", "a@x.io", "1")
	mustRegister(t, d, "Bob", "b@x.io", "2")

	_, err := d.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: strPtr("b@x.io")})
	assert.ErrorIs(t, err, common.ErrDuplicateIdentity)

	got, _ := d.Get(ctx, alice.ID)
	assert.Equal(t, "a@x.io", got.Email)

	_, err = d.UpdateProfile(ctx, "ghost", models.ProfileUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuthenticateLookup(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, nil)
	alice := mustRegister(t, d, "Alice", "alice@example.com", "1111111111")

	for _, key := range []string{"alice@example.com", " ALICE@example.com", "1111111111", " 1111111111 "} {
		id, err := d.AuthenticateLookup(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, alice.ID, id)
	}

	_, err := d.AuthenticateLookup(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = d.AuthenticateLookup(ctx, "   ")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	online := onlineSet{}
	d := newDirectory(t, online)
	alice := mustRegister(t, d, "Alice Johnson", "alice@example.com", "1111111111")
	bob := mustRegister(t, d, "Bob Smith", "bob@example.com", "2222222222")
	carol := mustRegister(t, d, "Carol Davis", "carol@example.com", "3333333333")
	online[bob.ID] = true

	all, err := d.Search(ctx, "", alice.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, bob.ID, all[0].ID)
	assert.True(t, all[0].IsOnline)
	assert.Equal(t, carol.ID, all[1].ID)
	assert.False(t, all[1].IsOnline)

	byName, _ := d.Search(ctx, "SMITH", "")
	require.Len(t, byName, 1)
	assert.Equal(t, bob.ID, byName[0].ID)

	byMobile, _ := d.Search(ctx, "3333", "")
	require.Len(t, byMobile, 1)
	assert.Equal(t, carol.ID, byMobile[0].ID)

	byEmail, _ := d.Search(ctx, "example.com", carol.ID)
	assert.Len(t, byEmail, 2)

	none, _ := d.Search(ctx, "zzz", "")
	assert.Empty(t, none)
}

type failingRepo struct{ users.Repository }

func (failingRepo) List(context.Context) ([]*models.User, error) { return nil, errors.New("db down") }
func (failingRepo) GetByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("db down")
}

func TestSearchAndExists_StorageErrors(t *testing.T) {
	d := New(failingRepo{}, nil, logging.Nop())

	_, err := d.Search(context.Background(), "", "")
	assert.ErrorContains(t, err, "db down")

	_, err = d.Exists(context.Background(), "u1")
	assert.ErrorContains(t, err, "db down")
}

func TestExistsAndList(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t, onlineSet{})
	alice := mustRegister(t, d, "Alice", "a@x.io", "1")

	ok, err := d.Exists(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := d.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, d.Reset(ctx))
	n, _ := d.Count(ctx)
	assert.Zero(t, n)
}
