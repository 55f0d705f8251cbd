/*
Package chatsdk provides a client SDK for the rolechat chat API.

# Overview

The package is organized around a handful of types:

  - Session: the signed in user's credential, persisted through a Storage
  - Gateway: issues authenticated requests and refreshes expired tokens
  - SDKClient: unauthenticated operations (login, register, health)
  - ChatClient: chat operations on top of a Gateway
  - ExpiryNotice: the one-shot "session expired" message

Wire them together once at startup:

	session, err := chatsdk.NewSession(ctx, storage)
	sdk := chatsdk.NewSDKClient("http://127.0.0.1:8080/api", session)

	gateway := chatsdk.NewGateway("http://127.0.0.1:8080/api", session,
		chatsdk.WithNavigator(navigator),
		chatsdk.WithExpiryNotice(chatsdk.NewExpiryNotice(sessionStorage, notifier, logger)),
	)
	chat := chatsdk.NewChatClient(gateway)

	_, err = sdk.Login(ctx, "alice@example.com", "secret")
	topics, err := chat.Topics(ctx)

# Token Refresh

Every Gateway request carries "Authorization: Bearer <access token>". When
the API answers 401 the gateway refreshes the token by posting the stored
refresh token to /auth/refresh:

 1. Only one refresh runs at a time. Callers hitting 401 while it runs wait
    for its outcome instead of starting their own.
 2. On success every waiting caller replays its original request once with
    the new token. A second 401 ends the session with ErrSessionExpired.
 3. On failure every waiting caller gets the same error, the credential is
    cleared, the ExpiryNotice fires and the Navigator is sent to the login
    path.

The refresh call is bounded by WithRefreshTimeout. A waiting caller may give
up early through its own context without affecting the others.

# Error Handling

Session ending errors:

  - ErrNoRefreshToken: nothing to refresh with, the backend is not called
  - *RefreshRejectedError: the backend refused the refresh token
  - ErrRefreshMalformed: the backend accepted but sent no access token
  - ErrSessionExpired: the refreshed token was rejected as well

IsSessionError reports whether an error is one of them. Responses other
than 401 are never treated as auth failures: Gateway.Request returns them
as-is and ChatClient turns non-2xx answers into *APIError.

# Thread Safety

Session, Gateway and the clients are safe for concurrent use.
*/
package chatsdk
