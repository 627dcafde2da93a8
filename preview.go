package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName   = "preview_session"
	previewRefKey = "ref"
	previewMaxAge = 60 * 60
)

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   previewMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// PreviewRef returns the preview ref stored in the session, or "" when the
// request is not in preview mode.
func PreviewRef(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	ref, _ := sess.Values[previewRefKey].(string)
	return ref
}

func setPreviewRef(c echo.Context, ref string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = ref
	return sess.Save(c.Request(), c.Response())
}

func clearPreview(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, previewRefKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

func (a *App) handlePreview(c echo.Context) error {
	ref := c.QueryParam("token")
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing preview token")
	}
	path, err := a.Content.ResolvePreview(c.Request().Context(), ref, c.QueryParam("documentId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound).SetInternal(err)
		}
		return err
	}
	if err := setPreviewRef(c, ref); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, path)
}

func (a *App) handleExitPreview(c echo.Context) error {
	if err := clearPreview(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}
