// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms), and records the request in the HTTP metrics under the
matched route pattern.

# Actors

Handlers that change state resolve the caller first:

	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}

The actor comes from the X-Actor-ID and X-Actor-Type headers set by the
upstream session layer. Missing or unknown values get a 401.

# Errors

WriteError maps core errors to status codes:

	validation            400
	forbidden             403
	not found             404
	conflict              409
	window / state        422
	anything else         500 (logged, message hidden)

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Actor-ID, X-Actor-Type. Preflight requests get 204.

# Request Bodies

ParseJSONBody caps bodies at 1 MiB and rejects unknown fields.
*/
package middleware
