package system

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/ldap"
	"github.com/marmos91/dittoauth/pkg/config"
	"github.com/marmos91/dittoauth/pkg/identity"
)

func newTestSystem(t *testing.T, cfg *config.Config) *System {
	t.Helper()
	t.Setenv("DITTOAUTH_KERBEROS_KEYTAB", "")
	t.Setenv("DITTOAUTH_KERBEROS_KEYTAB_PATH", "")
	t.Setenv("DITTOAUTH_KERBEROS_REALM", "")

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// bareConfig returns the default config without seed users so tests control
// attachment themselves.
func bareConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Users = nil
	return cfg
}

func mustUser(t *testing.T, s *System, name string, id int, password string) *identity.User {
	t.Helper()
	u, err := s.Directory().Create(name, id, password)
	require.NoError(t, err)
	return u
}

func TestNew_DefaultConfig(t *testing.T) {
	s := newTestSystem(t, nil)

	assert.Equal(t, "Local", s.Local().Name())
	assert.Equal(t, "LDAP", s.LDAP().Name())
	assert.Equal(t, "Kerberos", s.Kerberos().Name())
	assert.Same(t, s.Local(), s.Context().Active())
	assert.Equal(t, 3, s.Directory().Len())
	assert.NotNil(t, s.Config())

	id, ok := s.Local().GetUID("Kubra")
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	id, ok = s.LDAP().GetUID("Oktay")
	assert.True(t, ok)
	assert.Equal(t, 2, id)

	id, ok = s.Kerberos().GetUID("Ali")
	assert.True(t, ok)
	assert.Equal(t, 3, id)
}

func TestMechanism_SameInstance(t *testing.T) {
	s := newTestSystem(t, nil)

	for _, kind := range config.MechanismKinds {
		first, err := s.Mechanism(kind)
		require.NoError(t, err)
		second, err := s.Mechanism(kind)
		require.NoError(t, err)
		assert.Same(t, first, second, kind)
	}

	m, err := s.Mechanism(" LDAP ")
	require.NoError(t, err)
	assert.Same(t, s.LDAP(), m)

	_, err = s.Mechanism("radius")
	assert.ErrorIs(t, err, auth.ErrUnknownMechanism)
}

func TestMechanisms_DisplayOrder(t *testing.T) {
	s := newTestSystem(t, nil)

	var names []string
	for _, m := range s.Mechanisms() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"Local", "LDAP", "Kerberos"}, names)
}

func TestNew_ActiveMechanism(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.ActiveMechanism = config.MechanismLDAP
	s := newTestSystem(t, cfg)

	require.IsType(t, &ldap.LDAP{}, s.Context().Active())

	status, err := s.Context().Authenticate(context.Background(), "Oktay", "klm")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusSuccess, status)
	assert.Equal(t, []string{"Oktay"}, s.LDAP().AuthenticatedUsers())
	assert.Empty(t, s.Local().AuthenticatedUsers())
}

func TestNew_SeedErrors(t *testing.T) {
	t.Setenv("DITTOAUTH_KERBEROS_KEYTAB", "")
	t.Setenv("DITTOAUTH_KERBEROS_KEYTAB_PATH", "")

	t.Run("DuplicateUser", func(t *testing.T) {
		cfg := bareConfig()
		cfg.Users = []config.UserConfig{{Username: "Kubra", ID: 1}, {Username: "Kubra", ID: 2}}
		_, err := New(cfg)
		assert.ErrorIs(t, err, identity.ErrDuplicateUser)
	})

	t.Run("UnknownMechanism", func(t *testing.T) {
		cfg := bareConfig()
		cfg.Users = []config.UserConfig{{Username: "Kubra", ID: 1, Mechanisms: []string{"radius"}}}
		_, err := New(cfg)
		assert.ErrorIs(t, err, auth.ErrUnknownMechanism)
	})

	t.Run("DuplicateAttach", func(t *testing.T) {
		cfg := bareConfig()
		cfg.Users = []config.UserConfig{{Username: "Kubra", ID: 1, Mechanisms: []string{"local", "local"}}}
		_, err := New(cfg)
		assert.ErrorIs(t, err, auth.ErrDuplicateAttach)
	})

	t.Run("UnknownActive", func(t *testing.T) {
		cfg := bareConfig()
		cfg.ActiveMechanism = "radius"
		_, err := New(cfg)
		assert.ErrorIs(t, err, auth.ErrUnknownMechanism)
	})

	t.Run("MissingKeytab", func(t *testing.T) {
		cfg := bareConfig()
		cfg.Mechanisms.Kerberos.KeytabPath = "/nonexistent/auth.keytab"
		_, err := New(cfg)
		assert.Error(t, err)
	})
}

// Users are attached to their own mechanism and authenticate there.
func TestScenario_EachUserOnOwnMechanism(t *testing.T) {
	s := newTestSystem(t, bareConfig())
	ctx := context.Background()

	kubra := mustUser(t, s, "Kubra", 1, "abc")
	oktay := mustUser(t, s, "Oktay", 2, "klm")
	ali := mustUser(t, s, "Ali", 3, "xyz")

	require.NoError(t, s.Local().Attach(kubra))
	require.NoError(t, s.Kerberos().Attach(ali))
	require.NoError(t, s.LDAP().Attach(oktay))

	for _, tc := range []struct {
		mech auth.Mechanism
		user *identity.User
		pw   string
	}{
		{s.Local(), kubra, "abc"},
		{s.Kerberos(), ali, "xyz"},
		{s.LDAP(), oktay, "klm"},
	} {
		status, err := tc.mech.Authenticate(ctx, tc.user.Username(), tc.pw)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusSuccess, status)
		assert.Equal(t, tc.mech.Name(), tc.user.LastMechanismName())
		assert.Same(t, tc.mech, tc.user.LastMechanism())
	}

	id, ok := s.Local().GetUID("Kubra")
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = s.Local().GetUID("Ali")
	assert.False(t, ok)
}

// A failed authentication by someone else must not notify attached users.
func TestScenario_FailedAuthDoesNotNotify(t *testing.T) {
	s := newTestSystem(t, bareConfig())
	ctx := context.Background()

	kubra := mustUser(t, s, "Kubra", 1, "abc")
	mustUser(t, s, "Ali", 3, "xyz")
	require.NoError(t, s.Local().Attach(kubra))

	status, err := s.Local().Authenticate(ctx, "Ali", "abc")
	assert.ErrorIs(t, err, auth.ErrAuthenticationFailed)
	assert.Equal(t, auth.StatusAuthFailed, status)

	status, err = s.Local().Authenticate(ctx, "Mehmet", "abc")
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
	assert.Equal(t, auth.StatusUnknownUser, status)

	assert.Zero(t, kubra.AuthenticationCount())
	assert.Nil(t, kubra.LastMechanism())
	assert.Empty(t, s.Local().AuthenticatedUsers())
}

// Detached users still authenticate but are no longer notified.
func TestScenario_DetachedUserNotNotified(t *testing.T) {
	s := newTestSystem(t, bareConfig())
	ctx := context.Background()

	kubra := mustUser(t, s, "Kubra", 1, "abc")
	require.NoError(t, s.Local().Attach(kubra))
	s.Local().Detach(kubra)

	status, err := s.Local().Authenticate(ctx, "Kubra", "abc")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusSuccess, status)

	assert.Zero(t, kubra.AuthenticationCount())
	assert.Equal(t, []string{"Kubra"}, s.Local().AuthenticatedUsers())

	_, ok := s.Local().GetUID("Kubra")
	assert.False(t, ok)
}

func TestAttachedTo(t *testing.T) {
	s := newTestSystem(t, bareConfig())

	kubra := mustUser(t, s, "Kubra", 1, "abc")
	require.NoError(t, s.Local().Attach(kubra))
	require.NoError(t, s.Kerberos().Attach(kubra))

	assert.Equal(t, []string{"Local", "Kerberos"}, s.AttachedTo(kubra))

	oktay := mustUser(t, s, "Oktay", 2, "klm")
	assert.Empty(t, s.AttachedTo(oktay))
}

func TestConcurrentAuthentication(t *testing.T) {
	s := newTestSystem(t, bareConfig())
	ctx := context.Background()

	users := make([]*identity.User, 10)
	for i := range users {
		users[i] = mustUser(t, s, fmt.Sprintf("user-%d", i), i, "pw")
	}

	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, u *identity.User) {
			defer wg.Done()
			m := s.Mechanisms()[i%3]
			assert.NoError(t, m.Attach(u))
			_, err := m.Authenticate(ctx, u.Username(), "pw")
			assert.NoError(t, err)
			_, _ = m.GetUID(u.Username())
		}(i, u)
	}
	wg.Wait()

	total := 0
	for _, m := range s.Mechanisms() {
		total += len(m.AuthenticatedUsers())
	}
	assert.Equal(t, 10, total)
	for _, u := range users {
		assert.GreaterOrEqual(t, u.AuthenticationCount(), 1)
	}
}

func TestDefault_SameInstance(t *testing.T) {
	t.Setenv("DITTOAUTH_KERBEROS_KEYTAB", "")
	t.Setenv("DITTOAUTH_KERBEROS_KEYTAB_PATH", "")

	first := Default()
	require.NotNil(t, first)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Same(t, first, Default())
		}()
	}
	wg.Wait()

	assert.Same(t, first.Local(), Default().Local())
}
