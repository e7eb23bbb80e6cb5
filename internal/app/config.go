package app

import (
	"strings"
	"time"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/utils"
)

type Config struct {
	JWTSecretKey   string
	AnonCartTTL    time.Duration
	CartOpTimeout  time.Duration
	SessionIdleTTL time.Duration
	AllowOrigins   []string
	Port           string
	Environment    string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	anonCartTTLSeconds := utils.GetEnvAsInt("ANON_CART_TTL", 30*24*3600, log)
	cartOpTimeoutSeconds := utils.GetEnvAsInt("CART_OP_TIMEOUT", 10, log)
	sessionIdleTTLSeconds := utils.GetEnvAsInt("SESSION_IDLE_TTL", 1800, log)
	port := utils.GetEnv("PORT", "8080", log)
	environment := utils.GetEnv("ENVIRONMENT", "development", log)

	var allowOrigins []string
	for _, origin := range strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowOrigins = append(allowOrigins, origin)
		}
	}

	return Config{
		JWTSecretKey:   jwtSecretKey,
		AnonCartTTL:    time.Duration(anonCartTTLSeconds) * time.Second,
		CartOpTimeout:  time.Duration(cartOpTimeoutSeconds) * time.Second,
		SessionIdleTTL: time.Duration(sessionIdleTTLSeconds) * time.Second,
		AllowOrigins:   allowOrigins,
		Port:           port,
		Environment:    environment,
	}
}
