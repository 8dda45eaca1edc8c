package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently so log lines can be aggregated and queried.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Authentication
	KeyMechanism = "mechanism" // Mechanism name: Local, LDAP, Kerberos
	KeyUsername  = "username"
	KeyUID       = "uid"
	KeyStatus    = "status"   // Authentication status label
	KeyEventID   = "event_id" // Authenticated-log entry ID
	KeyObservers = "observers"
	KeyPrincipal = "principal" // Kerberos principal (user@REALM)
	KeyBindDN    = "bind_dn"   // LDAP bind DN
	KeyRealm     = "realm"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyPath       = "path"
	KeySource     = "source"
)

// Mechanism returns a mechanism name attribute.
func Mechanism(name string) slog.Attr {
	return slog.String(KeyMechanism, name)
}

// Username returns a username attribute.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// UID returns a user id attribute.
func UID(uid int) slog.Attr {
	return slog.Int(KeyUID, uid)
}

// Principal returns a Kerberos principal attribute.
func Principal(p string) slog.Attr {
	return slog.String(KeyPrincipal, p)
}

// Err returns an error attribute. A nil error yields an empty attribute,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
