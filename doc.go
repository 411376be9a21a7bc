// Package auth provides the credential and identity lifecycle for the
// employer portal: JWT issuance and validation, credential storage over Bun,
// password reset tokens, and the employer registration flow.
//
// Identity resolution:
//   - UserProvider resolves an identifier against the users table first and
//     falls back to employers. Employer accounts resolve only while ACTIVE;
//     any other status is reported as not found so callers cannot distinguish
//     a disabled account from a missing one.
//
// Account lifecycle:
//   - Employers carry an AccountStatus that starts at PENDING_ACTIVATION.
//     AccountStateMachine centralizes the transition graph, reason and
//     timestamp stamping, hooks, and persistence. Invoke Transition with
//     ActorRef metadata whenever an admin moves an account.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     password service, and the state machine to describe login, reset, and
//     lifecycle events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
//
// Password resets:
//   - PasswordService mints single-use reset tokens with a fixed validity
//     window, replaces prior tokens per user, and deletes tokens on use or on
//     expiry. ExpiredTokenSweeper runs a cron schedule to clear leftovers.
package auth
