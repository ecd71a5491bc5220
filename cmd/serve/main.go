// Command serve runs the AAG CloudWatcher acquisition loop alongside an
// HTTP gateway exposing its ring, latest reading, SOLO snapshot, and
// service state (§6).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/panoptes/aag-weather/internal/cloudwatcher"
	"github.com/panoptes/aag-weather/internal/config"
	"github.com/panoptes/aag-weather/internal/httpapi"
	"github.com/panoptes/aag-weather/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to a .env file with AAG_-prefixed configuration")
	host := flag.String("host", "0.0.0.0", "address to listen on")
	port := flag.Int("port", 8080, "port to listen on")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := log.Init(*verbose); err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("configuration error: %v", err)
		os.Exit(1)
	}
	cfg.VerboseLogging = cfg.VerboseLogging || *verbose

	loop := cloudwatcher.NewLoop(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	controller := httpapi.NewController(loop)
	addr := fmt.Sprintf("%s:%d", *host, *port)
	server := &http.Server{
		Addr:    addr,
		Handler: controller.Router(),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("http server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http server shutdown error: %v", err)
	}

	cancel()
	wg.Wait()
}
