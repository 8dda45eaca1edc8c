// Package auth provides the pluggable authentication abstractions for dittoauth.
//
// This package defines the mechanism-agnostic contract shared by every
// authentication backend:
//
//   - Mechanism: a pluggable credential check (Local, LDAP, Kerberos)
//   - Observer: a subscriber notified when an authentication succeeds
//   - Registry: the ordered set of observers attached to one mechanism
//   - Base: shared registry, notify and authenticated-log behavior that
//     concrete mechanisms compose instead of inheriting
//   - Context: holder of the currently active mechanism
//
// Sub-packages:
//   - local/: stub password comparison against the user directory
//   - ldap/: stub LDAP bind (no network)
//   - kerberos/: keytab-aware Kerberos mechanism built on gokrb5
//
// Callers only ever see the Mechanism interface, so switching the active
// backend does not change how authentication is invoked or observed.
package auth
