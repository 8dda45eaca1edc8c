package identity

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoauth/pkg/auth"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()

	d := NewDirectory()
	for _, u := range []*User{
		NewUser("Kubra", 1, "abc"),
		NewUser("Oktay", 2, "klm"),
		NewUser("Ali", 3, "xyz"),
	} {
		require.NoError(t, d.Add(u))
	}
	return d
}

func TestDirectory_ListPreservesInsertionOrder(t *testing.T) {
	d := newTestDirectory(t)

	users := d.List()
	require.Len(t, users, 3)
	assert.Equal(t, "Kubra", users[0].Username())
	assert.Equal(t, "Oktay", users[1].Username())
	assert.Equal(t, "Ali", users[2].Username())
	assert.Equal(t, 3, d.Len())

	// The returned slice is a copy.
	users[0] = nil
	assert.NotNil(t, d.List()[0])
}

func TestDirectory_AddRejectsDuplicates(t *testing.T) {
	d := newTestDirectory(t)

	err := d.Add(NewUser("Kubra", 42, "other"))
	require.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 3, d.Len())

	u, err := d.Get("Kubra")
	require.NoError(t, err)
	assert.Equal(t, 1, u.UID())
}

func TestDirectory_AddInvalid(t *testing.T) {
	d := NewDirectory()

	assert.Error(t, d.Add(nil))
	assert.ErrorIs(t, d.Add(NewUser(" ", 1, "")), auth.ErrInvalidCredentials)
	assert.Zero(t, d.Len())
}

func TestDirectory_Create(t *testing.T) {
	d := NewDirectory()

	u, err := d.Create("Kubra", 1, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Kubra", u.Username())

	_, err = d.Create("Kubra", 2, "abc")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestDirectory_Get(t *testing.T) {
	d := newTestDirectory(t)

	u, err := d.Get("Oktay")
	require.NoError(t, err)
	assert.Equal(t, 2, u.UID())

	_, err = d.Get("Mehmet")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDirectory_VerifyPassword(t *testing.T) {
	d := newTestDirectory(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"match", "Kubra", "abc", nil},
		{"mismatch", "Kubra", "xyz", auth.ErrAuthenticationFailed},
		{"unknown user", "Mehmet", "abc", auth.ErrUnknownUser},
		{"case sensitive username", "kubra", "abc", auth.ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.VerifyPassword(tt.username, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Unknown users also match the directory sentinel.
	assert.ErrorIs(t, d.VerifyPassword("Mehmet", ""), ErrUserNotFound)
}

func TestDirectory_Check(t *testing.T) {
	d := newTestDirectory(t)

	res := d.Check("Oktay")
	assert.True(t, res.Found)
	assert.Equal(t, "Oktay", res.Username)
	assert.Equal(t, []CheckEntry{
		{Username: "Kubra", Match: false},
		{Username: "Oktay", Match: true},
		{Username: "Ali", Match: false},
	}, res.Entries)

	res = d.Check("Mehmet")
	assert.False(t, res.Found)
	assert.Len(t, res.Entries, 3)
	for _, e := range res.Entries {
		assert.False(t, e.Match)
	}
}

func TestDirectory_CheckEmpty(t *testing.T) {
	res := NewDirectory().Check("Kubra")

	assert.False(t, res.Found)
	assert.Empty(t, res.Entries)
}

func TestDirectory_ConcurrentAdd(t *testing.T) {
	d := NewDirectory()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := d.Create(fmt.Sprintf("user-%d", n), n, "pw")
			assert.NoError(t, err)
			_ = d.Check("user-0")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, d.Len())
}
