// Package accounts implements a self-service user account core: registration,
// email activation, login and logout, password reset (authenticated and
// forgotten-password flows), deactivation, and the bookkeeping needed to let
// social identities coexist with a local password.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus persisted via Bun. The only moves are
//     unverified -> active -> deactivated, and AccountStateMachine is the single
//     place that applies them (transition table, timestamps, hooks, activity).
//   - Activation codes are persisted rows with a validity window. Activating
//     purges every code of the account in the same transaction as the status
//     change, so a code can win at most once.
//   - Password reset links are stateless JWTs fingerprinted with the current
//     password hash. Changing the password through any flow invalidates them.
//
// Sessions:
//   - Login persists a Session row and hands out a signed token that carries
//     the row id. Logout removes that row, a password change or a deactivation
//     removes every row of the account.
//
// Orchestration:
//   - Service exposes one method per operation. Field level problems are
//     reported through FieldErrors in the response, a non nil error always
//     means an infrastructure failure.
//   - Mail is composed by Mailer and handed to a MailSink. Delivery is
//     asynchronous and never rolls back a committed change.
package accounts
