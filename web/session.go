package web

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"pagetags/models"
	"pagetags/store"
)

const (
	sessionUserKey = "user_id"
	contextUserKey = "user"
)

// RequireAuth redirects to /login unless the session names an existing
// user. The user is stored in the context under "user".
func RequireAuth(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserKey).(uint)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		user, err := s.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			// user deleted while logged in
			session.Clear()
			session.Save()
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func (w *WebModule) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(sessionUserKey) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (w *WebModule) loginPost(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := w.store.AuthenticateUser(c.Request.Context(), username, password)
	if err != nil {
		w.renderError(c, err)
		return
	}
	if user == nil {
		log.Printf("failed login for user %q", username)
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"error":    "Invalid username or password",
			"username": username,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Printf("failed to save session: %v", err)
	}

	next := c.Query("next")
	if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
		next = "/"
	}
	c.Redirect(http.StatusFound, next)
}

func (w *WebModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/login")
}
