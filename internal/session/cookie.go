package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cookie 描述会话cookie怎么写：HttpOnly、SameSite=Lax、不设MaxAge（浏览器关掉就没）
type Cookie struct {
	Name   string
	Secure bool
}

func (ck Cookie) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, token, 0, "/", "", ck.Secure, true)
}

func (ck Cookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, "", -1, "/", "", ck.Secure, true)
}

func (ck Cookie) Read(c *gin.Context) string {
	token, err := c.Cookie(ck.Name)
	if err != nil {
		return ""
	}
	return token
}
