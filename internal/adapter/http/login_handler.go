package http

import (
	"net/http"
	"time"

	"github.com/Markko1982/order-manager/configs"
	"github.com/Markko1982/order-manager/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type TokenHandler struct {
	cfg     configs.Config
	clients security.Registry
	now     func() time.Time
}

func NewTokenHandler(cfg configs.Config, clients security.Registry) *TokenHandler {
	return &TokenHandler{cfg: cfg, clients: clients, now: time.Now}
}

// POST /token (form)
// Accepts: client_id, client_secret
func (h *TokenHandler) IssueToken(c *gin.Context) {
	clientID := c.PostForm("client_id")
	clientSecret := c.PostForm("client_secret")
	if clientID == "" || clientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client"})
		return
	}

	cl, ok := h.clients.Authenticate(clientID, clientSecret)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client"})
		return
	}

	now := h.now()
	claims := jwt.MapClaims{
		"iss":      h.cfg.Security.Issuer,            // issuer
		"aud":      h.cfg.Security.Audience,          // audience
		"iat":      now.Unix(),                       // issued at
		"nbf":      now.Unix(),                       // not before
		"exp":      now.Add(h.cfg.TokenTTL()).Unix(), // expire
		"clientID": cl.ID,
		"perms":    cl.Perms,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.Security.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(h.cfg.TokenTTL().Seconds()),
	})
}
