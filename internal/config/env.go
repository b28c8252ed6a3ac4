package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultUndoWindow adalah satu-satunya konstanta window undo.
// Countdown UI dan umur buffer revert memakai nilai yang sama.
const defaultUndoWindow = 300 * time.Second

type Env struct {
	AppAddr    string
	GinMode    string
	DBUser     string
	DBPass     string
	DBHost     string
	DBName     string
	JWTSecret  string
	UndoWindow time.Duration
}

func LoadEnv() Env {
	appAddr := strings.TrimSpace(os.Getenv("APP_ADDR"))
	if appAddr == "" {
		appAddr = ":8080"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))

	dbUser := strings.TrimSpace(os.Getenv("DB_USER"))
	if dbUser == "" {
		dbUser = "root"
	}
	dbHost := strings.TrimSpace(os.Getenv("DB_HOST"))
	if dbHost == "" {
		dbHost = "127.0.0.1:3306"
	}
	dbName := strings.TrimSpace(os.Getenv("DB_NAME"))
	if dbName == "" {
		dbName = "schoolbus_app"
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = "super-secret-key-change-me"
	}

	undoWindow := defaultUndoWindow
	if raw := strings.TrimSpace(os.Getenv("UNDO_WINDOW_SECONDS")); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			undoWindow = time.Duration(secs) * time.Second
		}
	}

	return Env{
		AppAddr:    appAddr,
		GinMode:    ginMode,
		DBUser:     dbUser,
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     dbHost,
		DBName:     dbName,
		JWTSecret:  jwtSecret,
		UndoWindow: undoWindow,
	}
}
