package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/utils/auth"
	"github.com/mrb4ll0/itc-trainee-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, blacklistService *auth.BlacklistService, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: blacklistService,
		db:               db,
	}
}

// authFailure is a validation failure that has not been written to the
// response yet; Required responds with it, Optional drops it
type authFailure struct {
	internal bool
	message  string
}

func (f *authFailure) respond(c *fiber.Ctx) error {
	if f.internal {
		return response.InternalServerError(c, f.message)
	}
	return response.Unauthorized(c, f.message)
}

func (m *AuthMiddleware) validateRequest(c *fiber.Ctx) (*auth.Claims, *model.User, *authFailure) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, &authFailure{message: "Missing authorization token"}
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, &authFailure{message: "Invalid authorization format"}
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if err == auth.ErrExpiredToken {
			return nil, nil, &authFailure{message: "Token has expired"}
		}
		return nil, nil, &authFailure{message: "Invalid token"}
	}

	if claims.TokenType != "access" {
		return nil, nil, &authFailure{message: "Invalid token type"}
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		return nil, nil, &authFailure{internal: true, message: "Failed to check token status"}
	}
	if isRevoked {
		return nil, nil, &authFailure{message: "Token has been revoked"}
	}

	var user model.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, &authFailure{message: "User not found"}
		}
		return nil, nil, &authFailure{internal: true, message: "Failed to load user"}
	}

	return claims, &user, nil
}

func storeIdentity(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", claims.UserID)
	c.Locals("user_email", claims.Email)
	c.Locals("user_role", claims.Role)
	c.Locals("company_id", user.CompanyID)
	c.Locals("claims", claims)
	c.Locals("user", user)
	c.Locals("token_jti", claims.ID)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, failure := m.validateRequest(c)
		if failure != nil {
			return failure.respond(c)
		}

		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}

		claims, user, failure := m.validateRequest(c)
		if failure != nil {
			// Invalid credentials on an optional route degrade to anonymous
			return c.Next()
		}

		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// RequireRole is middleware that requires specific user role
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole := c.Locals("user_role")
		if userRole == nil {
			return response.Forbidden(c, "Access denied")
		}

		role := userRole.(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetCompanyID extracts the authenticated user's company id from context
func GetCompanyID(c *fiber.Ctx) (string, bool) {
	companyID := c.Locals("company_id")
	if companyID == nil {
		return "", false
	}
	id, ok := companyID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetTokenJTI extracts the token JTI from context
func GetTokenJTI(c *fiber.Ctx) (string, bool) {
	jti := c.Locals("token_jti")
	if jti == nil {
		return "", false
	}
	j, ok := jti.(string)
	return j, ok
}
