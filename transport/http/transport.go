package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"
	"go.uber.org/zap"

	"github.com/miravpn/shop"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/payment/yookassa"
	"github.com/miravpn/shop/policy"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/user"
)

// UpdateDispatcher consumes raw Telegram updates; the bot package
// implements it.
type UpdateDispatcher interface {
	Dispatch(body []byte)
}

// TelegramWebhookHandler accepts updates pushed by Telegram. The secret is
// part of the path, so a request that reaches the dispatcher already proved
// it came from our setWebhook call.
func TelegramWebhookHandler(dispatcher UpdateDispatcher, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.Param("secret") != secret {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		dispatcher.Dispatch(body)
		c.Status(http.StatusOK)
	}
}

// YooKassaWebhookHandler settles transactions from gateway notifications.
// Replies 200 even for stale notifications so the gateway stops retrying.
func YooKassaWebhookHandler(gw *yookassa.Gateway, payments payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gw.TrustedIP(c.ClientIP()) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		event, paymentID, err := yookassa.ParseNotification(body)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		switch event {
		case yookassa.PaymentSucceeded:
			err = payments.HandleSucceeded(c, paymentID)
		case yookassa.PaymentCanceled:
			err = payments.HandleCanceled(c, paymentID)
		}

		if err != nil {
			if errors.Is(err, payment.ErrTransactionNotFound) {
				zap.L().Warn("unknown payment notification",
					zap.String("payment_id", paymentID))

				c.Status(http.StatusOK)
				return
			}

			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.Status(http.StatusOK)
	}
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Authorizator guards admin routes: a valid token alone is not enough, its
// roles must also be granted the permission by policy.
func Authorizator(p policy.Policy) func(permission string) gin.HandlerFunc {
	return func(permission string) gin.HandlerFunc {
		return func(c *gin.Context) {
			var claims Claims
			if err := ParseToken(c, &claims); err != nil {
				unauthorized(c, http.StatusUnauthorized, err)
				return
			}

			allowed, err := p.Allowed(c, claims.Roles, permission)
			if err != nil {
				c.Abort()
				c.Error(err)
				c.String(http.StatusInternalServerError, err.Error())
				return
			}

			if !allowed {
				err := errors.New("permission denied")
				unauthorized(c, http.StatusForbidden, err)
				return
			}

			c.Next()
		}
	}
}

func StatisticsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := endpoint(c, nil)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

type MaintenanceRequest struct {
	Active bool `json:"active"`
}

func MaintenanceHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MaintenanceRequest
		if err := c.ShouldBind(&req); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, req.Active)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"maintenance": resp})
	}
}

func ServersHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := endpoint(c, nil)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AddServerHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shop.AddServerRequest
		if err := c.ShouldBind(&req); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, req)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func DeleteServerHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("server")
		if name == "" {
			err := errors.New("server not found")
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		if _, err := endpoint(c, name); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func PingServerHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("server")
		if name == "" {
			err := errors.New("server not found")
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, name)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"latency": resp})
	}
}

func RegisterUserHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shop.RegisterUserRequest
		if err := c.ShouldBind(&req); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, req)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func UserHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, telegramID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				c.AbortWithStatus(http.StatusNotFound)
				return
			}

			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SubscriptionKeyHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, telegramID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				c.AbortWithStatus(http.StatusNotFound)
				return
			}

			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"key": resp})
	}
}

func ClientDataHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, telegramID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) || errors.Is(err, shop.ErrNoSubscription) {
				c.AbortWithStatus(http.StatusNotFound)
				return
			}

			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func PromocodesHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := endpoint(c, nil)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

type CreatePromocodeRequest struct {
	Duration int `json:"duration"` // days
}

func CreatePromocodeHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePromocodeRequest
		if err := c.ShouldBind(&req); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		resp, err := endpoint(c, req.Duration)
		if err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func DeletePromocodeHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		if code == "" {
			err := errors.New("promocode not found")
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		if _, err := endpoint(c, code); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.Status(http.StatusNoContent)
	}
}

type ActivatePromocodeBody struct {
	TelegramID int64 `json:"telegram_id"`
}

// ActivatePromocodeHandler redeems a code on behalf of a user, for support
// cases where the bot dialog is not an option.
func ActivatePromocodeHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body ActivatePromocodeBody
		if err := c.ShouldBind(&body); err != nil {
			c.Abort()
			c.Error(err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		req := shop.ActivatePromocodeRequest{
			TelegramID: body.TelegramID,
			Code:       c.Param("code"),
		}

		resp, err := endpoint(c, req)
		if err != nil {
			if errors.Is(err, promocode.ErrPromocodeNotFound) {
				c.AbortWithStatus(http.StatusNotFound)
				return
			}

			if errors.Is(err, promocode.ErrPromocodeActivated) {
				c.Abort()
				c.Error(err)
				c.String(http.StatusConflict, err.Error())
				return
			}

			c.Abort()
			c.Error(err)
			c.String(http.StatusExpectationFailed, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
