package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/logging"
	"github.com/pinftbay/piauth/service"
)

const (
	profileKey = "profile"

	// isoMillis matches JavaScript's Date.toISOString
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	development bool
	piSandbox   bool
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, opts Options) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		development: opts.Development,
		piSandbox:   opts.PiSandbox,
	}
}

// userResponse is the public user view returned by verify and me
type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	WalletAddress string    `json:"walletAddress"`
	Roles         []string  `json:"roles"`
	Verified      bool      `json:"verified"`
	APIMode       core.Mode `json:"apiMode,omitempty"`
	TokenIssuedAt string    `json:"tokenIssuedAt,omitempty"`
}

func newUserResponse(p core.Profile) userResponse {
	return userResponse{
		ID:            p.ID,
		Username:      p.Username,
		WalletAddress: p.WalletAddress,
		Roles:         p.Roles,
		Verified:      p.Verified,
	}
}

func isoTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		PiUserID string `json:"piUserId" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pi User ID is required"})
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.PiUserID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Pi User ID is required"})
			return
		}
		logging.FromContext(c.Request.Context(), nil).Error("challenge generation error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge": challenge.Value,
		"timestamp": challenge.IssuedAt.UnixMilli(),
		"message":   "Authenticate with Pi Network: " + challenge.Value,
	})
}

// Verify handles the verify request
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		PiUserID    string `json:"piUserId" binding:"required"`
		AccessToken string `json:"accessToken" binding:"required"`
		Username    string `json:"username"`
		Challenge   string `json:"challenge"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pi User ID and access token are required"})
		return
	}

	res, err := h.authService.Verify(c.Request.Context(), service.VerifyRequest{
		UserID:      req.PiUserID,
		AccessToken: req.AccessToken,
		Username:    req.Username,
		Challenge:   req.Challenge,
	})
	if err != nil {
		h.verifyError(c, err)
		return
	}

	user := newUserResponse(res.Profile)
	user.APIMode = res.Mode

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
		"token":   res.Token,
	})
}

// verifyError maps verify failures to status codes
func (h *AuthHandlers) verifyError(c *gin.Context, err error) {
	var verr *core.VerificationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": verr.Reason})
	case errors.Is(err, core.ErrChallengeRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authentication challenge is required"})
	case errors.Is(err, core.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pi User ID and access token are required"})
	case errors.Is(err, core.ErrChallengeNotFound),
		errors.Is(err, core.ErrChallengeMismatch),
		errors.Is(err, core.ErrChallengeExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired authentication challenge"})
	default:
		logging.FromContext(c.Request.Context(), nil).Error("authentication verification error", "error", err)
		body := gin.H{"error": "Authentication failed"}
		if h.development {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// Me returns the profile of the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	// Profile is set by the auth middleware
	value, exists := c.Get(profileKey)
	profile, ok := value.(core.Profile)
	if !exists || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}

	user := newUserResponse(profile)
	user.TokenIssuedAt = isoTime(profile.IssuedAt)

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuthHealth reports the auth service state
func (h *AuthHandlers) AuthHealth(c *gin.Context) {
	health := h.authService.Health()
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   "Pi NFT Bay Auth Service",
		"piApiMode": health.Mode,
		"timestamp": isoTime(health.Time),
	})
}

// Health is the process liveness check
func (h *AuthHandlers) Health(c *gin.Context) {
	health := h.authService.Health()
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Pi NFT Bay Backend is running!",
		"timestamp": isoTime(health.Time),
		"piSandbox": h.piSandbox,
	})
}

// Home lists the public endpoints
func (h *AuthHandlers) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Pi NFT Bay Backend API",
		"service": "Pi NFT Marketplace Backend",
		"endpoints": []string{
			"GET /health - Health check",
			"POST /api/auth/challenge",
			"POST /api/auth/verify",
			"GET /api/auth/me",
			"GET /api/auth/health",
		},
	})
}
