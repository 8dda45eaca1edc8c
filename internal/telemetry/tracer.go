package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for authentication spans.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Mechanism attributes
	// ========================================================================
	AttrMechanism = "auth.mechanism" // Local, LDAP, Kerberos
	AttrStatus    = "auth.status"    // success, auth_failed, unknown_user, ...
	AttrObservers = "auth.observers" // Observers notified after a success
	AttrEventID   = "auth.event_id"  // Authenticated-log entry ID

	// ========================================================================
	// User attributes
	// ========================================================================
	AttrUID      = "user.uid"
	AttrUsername = "user.name"

	// ========================================================================
	// Backend attributes
	// ========================================================================
	AttrBindDN    = "ldap.bind_dn"
	AttrPrincipal = "krb5.principal"
	AttrRealm     = "krb5.realm"
	AttrKeytab    = "krb5.keytab"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanAuthenticate = "auth.authenticate"
	SpanContextAuth  = "auth.context.authenticate"
	SpanLDAPBind     = "ldap.bind"
	SpanKrb5Lookup   = "krb5.principal_lookup"
	SpanKeytabReload = "krb5.keytab_reload"
)

// Mechanism returns an attribute for the mechanism name
func Mechanism(name string) attribute.KeyValue {
	return attribute.String(AttrMechanism, name)
}

// Status returns an attribute for an authentication status label
func Status(label string) attribute.KeyValue {
	return attribute.String(AttrStatus, label)
}

// Observers returns an attribute for the number of notified observers
func Observers(n int) attribute.KeyValue {
	return attribute.Int(AttrObservers, n)
}

// EventID returns an attribute for an authenticated-log entry ID
func EventID(id string) attribute.KeyValue {
	return attribute.String(AttrEventID, id)
}

// UID returns an attribute for user ID
func UID(uid int) attribute.KeyValue {
	return attribute.Int(AttrUID, uid)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// BindDN returns an attribute for an LDAP bind DN
func BindDN(dn string) attribute.KeyValue {
	return attribute.String(AttrBindDN, dn)
}

// Principal returns an attribute for a Kerberos principal
func Principal(p string) attribute.KeyValue {
	return attribute.String(AttrPrincipal, p)
}

// Realm returns an attribute for a Kerberos realm
func Realm(r string) attribute.KeyValue {
	return attribute.String(AttrRealm, r)
}

// Keytab returns an attribute for a keytab path
func Keytab(path string) attribute.KeyValue {
	return attribute.String(AttrKeytab, path)
}

// StartAuthSpan starts a span for an authentication attempt.
// This is a convenience function that sets the mechanism and username.
func StartAuthSpan(ctx context.Context, mechanism, username string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Mechanism(mechanism),
		Username(username),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanAuthenticate, trace.WithAttributes(allAttrs...))
}
