package app

import "net/http"

type SessionKey string

const SessionKeyUserId = SessionKey("userId")

func (app *Application) contextGetUserId(r *http.Request) int {
	return app.sessionManager.GetInt(r.Context(), string(SessionKeyUserId))
}
