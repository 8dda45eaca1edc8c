// Package identity holds the users known to the system.
//
// A User is an auth.Observer: it can be attached to any number of mechanisms
// and records which mechanism authenticated it last. The Directory is the
// system-wide, insertion-ordered set of users. It doubles as the stub
// credential source consulted by the mechanisms and answers membership
// checks (Check) against the canonical user set.
package identity
