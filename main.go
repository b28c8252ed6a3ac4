package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "schoolbus/internal/config"
	router "schoolbus/internal/http"
	"schoolbus/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	intconfig.ConnectDB()
	defer intconfig.CloseDB()

	undo := services.NewUndoManager(env.UndoWindow)
	services.SetUndoManager(undo)

	// Sweeper: buffer undo yang lewat window difinalisasi otomatis,
	// selain pengecekan lazy di revert/list.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 30s", func() {
		if n := undo.SweepExpired(); n > 0 {
			log.Printf("[UNDO] sweep: %d aksi difinalisasi otomatis", n)
		}
	}); err != nil {
		log.Fatalf("Gagal mendaftarkan sweeper undo: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Router (Gin engine)
	r := router.NewRouter(env)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server berjalan di http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Gagal menjalankan server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Mematikan server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown server gagal: %v", err)
	}

	log.Println("Server berhenti dengan aman.")
}
