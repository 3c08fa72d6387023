package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/config"
	"github.com/kendall-kelly/bakery-orders-api/logger"
	"github.com/kendall-kelly/bakery-orders-api/middleware"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/services"
	"gorm.io/gorm"
)

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindValidation:        http.StatusBadRequest,
	apperrors.KindNotFound:          http.StatusNotFound,
	apperrors.KindForbidden:         http.StatusForbidden,
	apperrors.KindInvalidTransition: http.StatusConflict,
	apperrors.KindInvalidStatus:     http.StatusBadRequest,
	apperrors.KindDuplicatePayment:  http.StatusConflict,
	apperrors.KindUnauthenticated:   http.StatusUnauthorized,
	apperrors.KindConflict:          http.StatusConflict,
}

// respondError writes the error envelope for err. Anything that is not an
// application error is logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		log := logger.Component("http")
		log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("request failed")

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "An unexpected error occurred",
			},
		})
		return
	}

	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{
		"code":    appErr.Kind,
		"message": appErr.Message,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.Code != "" {
		body["reason"] = appErr.Code
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondValidation reports a malformed request body
func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    apperrors.KindValidation,
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// currentUser loads the profile of the authenticated caller. It returns nil
// without error when the token is valid but no profile has been created yet.
func currentUser(c *gin.Context) (*models.User, error) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		return nil, apperrors.Unauthenticated()
	}

	var user models.User
	err = config.GetDB().WithContext(c.Request.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// currentActor resolves the caller into the identity the order core authorizes against.
// Callers without a profile get a nil actor and are rejected by the core.
func currentActor(c *gin.Context) (*services.Actor, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	return services.ActorFor(user), nil
}
