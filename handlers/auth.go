package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/padraicbc/racereg/middleware"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signinResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HashPasswordForUser returns a bcrypt hash for an operator account.
func HashPasswordForUser(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeUser(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (h *Handler) isAdmin(username string) bool {
	return slices.ContainsFunc(h.auth.Admins, func(a string) bool {
		return normalizeUser(a) == normalizeUser(username)
	})
}

// issueToken signs a token bound to username that expires after the configured TTL.
func (h *Handler) issueToken(username string) (signinResponse, error) {
	exp := time.Now().Add(h.auth.TokenTTL).UTC()
	claims := &mw.Claims{
		Username: username,
		UserHash: mw.UserHashFromUsername(username, h.auth.Key),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.auth.Key)
	if err != nil {
		return signinResponse{}, err
	}
	return signinResponse{Token: signed, ExpiresAt: exp}, nil
}

// PasswordHash lets an admin operator mint a hash for a new account (stored with cmd/adduser).
func (h *Handler) PasswordHash(c echo.Context) error {
	requester, _ := c.Get("username").(string)
	if _, err := h.repo.UserByName(c.Request().Context(), strings.TrimSpace(requester)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !h.isAdmin(requester) {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	var creds credentials
	if err := bind(c, &creds); err != nil {
		return err
	}
	hash, err := HashPasswordForUser(creds.Username, creds.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"username":     strings.TrimSpace(creds.Username),
		"passwordHash": hash,
	})
}

// Signin checks operator credentials and returns a signed token.
func (h *Handler) Signin(c echo.Context) error {
	var creds credentials
	if err := bind(c, &creds); err != nil {
		return err
	}
	creds.Username = strings.TrimSpace(creds.Username)

	user, err := h.repo.UserByName(c.Request().Context(), creds.Username)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)) != nil {
		h.log.Warn("signin rejected", zap.String("username", creds.Username))
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	resp, err := h.issueToken(user.Username)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
