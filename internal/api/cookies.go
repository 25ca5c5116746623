package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const consentMaxAge = 365 * 24 * 60 * 60

var consentCookies = []string{"onboarding", "privacy"}

func validConsent(name string) bool {
	for _, n := range consentCookies {
		if n == name {
			return true
		}
	}
	return false
}

func (h *Handler) getCookies(c *gin.Context) {
	c.JSON(http.StatusOK, consentState(c, "", false))
}

func (h *Handler) setCookie(c *gin.Context) {
	name := c.Query("name")
	if !validConsent(name) {
		badRequest(c, "name must be onboarding or privacy")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "true", consentMaxAge, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, consentState(c, name, true))
}

func (h *Handler) deleteCookie(c *gin.Context) {
	name := c.Query("name")
	if !validConsent(name) {
		badRequest(c, "name must be onboarding or privacy")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, consentState(c, name, false))
}

// consentState reports cookie presence, with changed overridden by the
// value written in this response.
func consentState(c *gin.Context, changed string, present bool) gin.H {
	state := gin.H{}
	for _, name := range consentCookies {
		if name == changed {
			state[name] = present
			continue
		}
		_, err := c.Cookie(name)
		state[name] = err == nil
	}
	return state
}
