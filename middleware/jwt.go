package middleware

import (
	"fmt"
	"strings"
	"time"

	"scormhost/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// GenerateLaunchToken signs a short-lived token scoping a player session to
// one attempt. The player shell passes it back on every runtime call.
func GenerateLaunchToken(attemptID uint, learnerID string) (string, error) {
	claims := jwt.MapClaims{
		"attemptId": attemptID,
		"learnerId": learnerID,
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(config.AppConfig.JWTKey)

	return token.SignedString(jwtSecret)
}

// LaunchTokenMiddleware checks for a valid launch token in the request and
// stores its attempt ID in the context. The token is accepted from the
// Authorization header or, for iframe launches, a "token" query parameter.
func LaunchTokenMiddleware(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  false,
				"message": "Missing or invalid Authorization header",
			})
		}
		tokenString = authHeader[len("Bearer "):]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid or expired token",
		})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["attemptId"] == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid token payload",
		})
	}

	// JWT claims decode numbers as float64
	attemptID := claims["attemptId"].(float64)
	c.Locals("attemptId", uint(attemptID))

	return c.Next()
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}
