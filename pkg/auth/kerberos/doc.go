// Package kerberos implements the Kerberos mechanism.
//
// Without a keytab the mechanism behaves like the other stub mechanisms: the
// password is compared against the user directory. When a keytab is configured
// the mechanism additionally:
//   - Loads the keytab and krb5.conf with gokrb5 at construction time
//   - Resolves the realm from configuration or the krb5.conf default_realm
//   - Requires "<username>@<REALM>" to have a key entry in the keytab
//   - Polls the keytab file for changes and hot-reloads it (KeytabManager)
//
// No KDC is contacted. Environment variables take precedence over the
// configuration file:
//   - DITTOAUTH_KERBEROS_KEYTAB overrides keytab_path
//   - DITTOAUTH_KERBEROS_KRB5CONF overrides krb5_conf
//   - DITTOAUTH_KERBEROS_REALM overrides realm
package kerberos
