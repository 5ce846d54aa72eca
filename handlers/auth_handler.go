package handlers

import (
	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/services"
)

type authStatus struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *models.User `json:"user"`
}

func (h *GraphQLHandler) authOperations() map[string]operation {
	return map[string]operation{
		"register":   {resolve: h.register},
		"login":      {resolve: h.login},
		"logout":     {resolve: h.logout},
		"authStatus": {resolve: h.authStatus},
		"me":         {resolve: h.me},
	}
}

func (h *GraphQLHandler) throttle(c *opContext) error {
	if h.limiter != nil && !h.limiter.Allow(middleware.ClientIP(c.r)) {
		return errRateLimited
	}
	return nil
}

func (h *GraphQLHandler) register(c *opContext) (interface{}, error) {
	if err := h.throttle(c); err != nil {
		return nil, err
	}
	var input services.RegisterInput
	if err := c.bind(&input); err != nil {
		return nil, err
	}
	if input.Email == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return nil, services.ValidationError("email, password, first name and last name are required")
	}

	res, err := h.svc.Auth.Register(c.ctx, input)
	if err != nil {
		return nil, err
	}
	middleware.SetAuthCookie(c.w, res.Token, res.ExpiresAt, h.secureCookie)
	return res, nil
}

func (h *GraphQLHandler) login(c *opContext) (interface{}, error) {
	if err := h.throttle(c); err != nil {
		return nil, err
	}
	var input services.LoginInput
	if err := c.bind(&input); err != nil {
		return nil, err
	}
	if input.Email == "" || input.Password == "" {
		return nil, services.ValidationError("email and password are required")
	}

	res, err := h.svc.Auth.Login(c.ctx, input)
	if err != nil {
		return nil, err
	}
	middleware.SetAuthCookie(c.w, res.Token, res.ExpiresAt, h.secureCookie)
	return res, nil
}

// logout только очищает cookie: выданный токен остается действительным до истечения срока.
func (h *GraphQLHandler) logout(c *opContext) (interface{}, error) {
	middleware.ClearAuthCookie(c.w, h.secureCookie)
	return true, nil
}

func (h *GraphQLHandler) authStatus(c *opContext) (interface{}, error) {
	return authStatus{IsAuthenticated: c.user != nil, User: c.user}, nil
}

func (h *GraphQLHandler) me(c *opContext) (interface{}, error) {
	return c.user, nil
}
