// Package app assembles the processes of the module from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jobflow/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
)

// LoadDotenv reads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotenv(logger *log.Logger) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("[Config] .env not loaded: %v", err)
	}
}

// newFiber returns an app with the shared middleware chain: access log
// outermost, then error rendering.
func newFiber(appName string, render middleware.ErrorRenderer, logger *log.Logger) *fiber.App {
	f := fiber.New(fiber.Config{
		AppName:      appName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	})

	f.Use(middleware.NewAccessLogMiddleware(logger, "/static/", "/health").Middleware())
	f.Use(middleware.NewErrorMiddleware(render, logger).Middleware())
	return f
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}

// Serve listens on port until SIGINT or SIGTERM, then shuts down gracefully
// and runs cleanup.
func Serve(f *fiber.App, port string, cleanup func() error, logger *log.Logger) error {
	addr, err := ListenAddr(port)
	if err != nil {
		return err
	}
	defer func() {
		if cleanup == nil {
			return
		}
		if err := cleanup(); err != nil {
			logger.Printf("cleanup error: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- f.Listen(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Printf("shutting down signal=%s", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return f.ShutdownWithContext(ctx)
	}
}
