package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"servigo-client/models"
)

// Claims carried in the mock server's access tokens. The field names match
// what the client's session layer reads unverified.
type Claims struct {
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// handleLogin exchanges email+password for a signed token plus the account.
func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "email and password are required"})
		return
	}

	var account models.Account
	if err := s.db.Where("email = ?", req.Email).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}
	if !account.CanTransact() {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Account is suspended or blocked"})
		return
	}

	token, expiresIn, err := s.signToken(&account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"account":      account,
	})
}

// handleMe returns the authenticated account.
func (s *Server) handleMe(c *gin.Context) {
	account := currentAccount(c)
	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (s *Server) signToken(account *models.Account) (string, int64, error) {
	const expiry = 24 * time.Hour
	claims := &Claims{
		UserID: account.ID,
		Role:   account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "servigo-mockapi",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiry.Seconds()), nil
}

// authMiddleware validates the bearer token and loads the account into the
// request context.
func (s *Server) authMiddleware(requiredRole models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token must be in format: Bearer <token>"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token claims are invalid"})
			c.Abort()
			return
		}

		var account models.Account
		if err := s.db.First(&account, claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Account associated with token not found"})
			c.Abort()
			return
		}
		if !account.CanTransact() {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Account is suspended or blocked"})
			c.Abort()
			return
		}
		if requiredRole != "" && account.Role != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Insufficient role for this endpoint"})
			c.Abort()
			return
		}

		c.Set("account", &account)
		c.Set("account_id", account.ID)
		c.Next()
	}
}

func currentAccount(c *gin.Context) *models.Account {
	if v, ok := c.Get("account"); ok {
		if account, ok := v.(*models.Account); ok {
			return account
		}
	}
	return nil
}
