package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

// getValidator returns the shared validator. Field names in errors use the
// yaml tag so messages match what users write in the config file.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration for invalid or inconsistent values.
//
// It runs the struct tag rules first, then cross-field checks that tags cannot
// express: unique mechanism names, unique usernames and no repeated mechanism
// per user.
// Validate does not modify cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := validateMechanismNames(&cfg.Mechanisms); err != nil {
		return err
	}
	return validateUsers(cfg.Users)
}

// validateMechanismNames rejects two mechanisms sharing a display name; names
// label metrics and identify mechanisms in command output.
func validateMechanismNames(m *MechanismsConfig) error {
	names := []struct {
		field string
		name  string
	}{
		{"mechanisms.local.name", m.Local.Name},
		{"mechanisms.ldap.name", m.LDAP.Name},
		{"mechanisms.kerberos.name", m.Kerberos.Name},
	}

	seen := make(map[string]string, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n.name))
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%s: duplicate mechanism name %q (also used by %s)", n.field, n.name, prev)
		}
		seen[key] = n.field
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the root struct name: "Config.logging.level" -> "logging.level"
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}

		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' rule", field, rule))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func validateUsers(users []UserConfig) error {
	seen := make(map[string]struct{}, len(users))
	for i, u := range users {
		if _, dup := seen[u.Username]; dup {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = struct{}{}

		kinds := make(map[string]struct{}, len(u.Mechanisms))
		for _, m := range u.Mechanisms {
			if _, dup := kinds[m]; dup {
				return fmt.Errorf("users[%d]: mechanism %q listed twice for %q", i, m, u.Username)
			}
			kinds[m] = struct{}{}
		}
	}
	return nil
}
