package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/config"
	"github.com/kendall-kelly/bakery-orders-api/middleware"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/services"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name                   string  `json:"name" binding:"omitempty"`
	Email                  string  `json:"email" binding:"omitempty,email"`
	Phone                  *string `json:"phone" binding:"omitempty,max=20"`
	DefaultDeliveryAddress *string `json:"default_delivery_address"`
}

// CreateUser handles POST /api/v1/users - creates the caller's profile from Auth0 userinfo
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user ID from token",
			},
		})
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_TOKEN",
				"message": "Access token not found",
			},
		})
		return
	}

	userInfo, err := services.NewAuth0Service(config.GetConfig()).ProfileFor(c.Request.Context(), auth0ID, accessToken)
	if err != nil {
		_ = c.Error(err)
		var auth0Err *services.Auth0Error
		status, code, message := http.StatusBadGateway, "AUTH0_ERROR", "Failed to fetch user information from Auth0"
		switch {
		case errors.Is(err, services.ErrSubjectMismatch):
			status, code, message = http.StatusUnauthorized, "INVALID_TOKEN", "Token does not belong to this user"
		case errors.As(err, &auth0Err) && auth0Err.Unauthorized():
			status, code, message = http.StatusUnauthorized, "INVALID_TOKEN", "Auth0 rejected the access token"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	if userInfo.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_EMAIL",
				"message": "Email not provided by Auth0",
			},
		})
		return
	}

	name := userInfo.Name
	if name == "" {
		name = userInfo.Email
	}

	// Only the staff role is honoured from the token; everyone else orders as a customer
	role := models.RoleCustomer
	if middleware.GetRole(c) == models.RoleStaff {
		role = models.RoleStaff
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    name,
		Email:   userInfo.Email,
		Role:    role,
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "USER_EXISTS",
					"message": "A user with this Auth0 ID or email already exists",
				},
			})
			return
		}

		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		userNotFound(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates contact and delivery defaults
func UpdateMyProfile(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		userNotFound(c)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.DefaultDeliveryAddress != nil {
		updates["default_delivery_address"] = strings.TrimSpace(*req.DefaultDeliveryAddress)
	}

	if len(updates) > 0 {
		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Model(user).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "EMAIL_EXISTS",
						"message": "A user with this email already exists",
					},
				})
				return
			}

			respondError(c, err)
			return
		}

		if err := db.First(user, user.ID).Error; err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

func userNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "USER_NOT_FOUND",
			"message": "User profile not found. Please create a profile first.",
		},
	})
}

// isDuplicate matches unique violations from both PostgreSQL and SQLite
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
