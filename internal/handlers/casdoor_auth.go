package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/config"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

// TokenParser validates a Casdoor access token. *casdoorsdk.Client
// satisfies it.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	parser TokenParser
	logger utils.Logger
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return NewAuthMiddleware(client, logger)
}

func NewAuthMiddleware(parser TokenParser, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser: parser,
		logger: logger,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    CodeUnauthorized,
				Message: "authorization header missing or malformed",
			})
			return
		}

		claims, err := cam.parser.ParseJwtToken(token)
		if err != nil {
			utils.FromContext(c, cam.logger).Warn("Rejected access token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    CodeUnauthorized,
				Message: "invalid token",
			})
			return
		}

		user, err := userFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    CodeUnauthorized,
				Message: err.Error(),
			})
			return
		}

		// Set user information in context
		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_role", user.Role)
		c.Set("user_email", user.Email)

		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role. Admins always pass.
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Code:    CodeForbidden,
				Message: "user role not found in context",
			})
			return
		}

		for _, requiredRole := range requiredRoles {
			if role == requiredRole || role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Code:    CodeForbidden,
			Message: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

// RequireStaff admits instructors and admins.
func (cam *CasdoorAuthMiddleware) RequireStaff() gin.HandlerFunc {
	return cam.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func userFromClaims(claims *casdoorsdk.Claims) (*models.User, error) {
	if claims == nil || claims.Id == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user := &models.User{
		ID:       claims.Id,
		FullName: claims.User.DisplayName,
		Email:    claims.User.Email,
		Role:     mapCasdoorRole(claims.User.Type, claims.User.IsAdmin),
	}
	if claims.User.Avatar != "" {
		avatar := claims.User.Avatar
		user.AvatarURL = &avatar
	}
	return user, nil
}

// mapCasdoorRole maps the Casdoor user type to an internal role. Unknown
// types get the least privileged role.
func mapCasdoorRole(casdoorType string, isAdmin bool) models.UserRole {
	if isAdmin {
		return models.RoleAdmin
	}
	switch strings.ToLower(strings.TrimSpace(casdoorType)) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "instructor", "teacher", "trainer", "educator":
		return models.RoleInstructor
	default:
		return models.RoleTrainee
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
