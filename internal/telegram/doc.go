// Package telegram connects to a Telegram user account over MTProto and exposes its bio and emoji status.
//
// [Client] owns the connection and the session file. While [Client.Run] is active, [Client.Profile] returns
// a [Profile] that implements presence.Profile. Every profile call is bounded by the configured request
// timeout and failures are wrapped in [shared.ErrRemote].
//
// Session files are stored in a directory created with 0700 permissions since they grant full access to the account.
package telegram
