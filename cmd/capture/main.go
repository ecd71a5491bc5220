// Command capture runs the AAG CloudWatcher acquisition loop standalone,
// optionally appending every successful reading to a JSON-lines file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/panoptes/aag-weather/internal/cloudwatcher"
	"github.com/panoptes/aag-weather/internal/config"
	"github.com/panoptes/aag-weather/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to a .env file with AAG_-prefixed configuration")
	output := flag.String("output", "", "optional file to append each successful reading to, as JSON-lines")
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

	var outWriter *recordWriter
	if *output != "" {
		outWriter, err = newRecordWriter(*output)
		if err != nil {
			log.Errorf("cannot open output file: %v", err)
			os.Exit(1)
		}
		defer outWriter.Close()
	}

	loop := cloudwatcher.NewLoop(cfg)
	if outWriter != nil {
		loop.OnReading(outWriter.write)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	<-sigs
	log.Info("shutdown signal received")
	cancel()
	wg.Wait()
}

// recordWriter appends each reading as a line of JSON to a file, used by
// the --output flag.
type recordWriter struct {
	mu sync.Mutex
	f  *os.File
}

func newRecordWriter(path string) (*recordWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &recordWriter{f: f}, nil
}

func (w *recordWriter) write(r cloudwatcher.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	body, err := json.Marshal(r)
	if err != nil {
		log.Warnf("failed to marshal reading for output file: %v", err)
		return
	}
	body = append(body, '\n')
	if _, err := w.f.Write(body); err != nil {
		log.Warnf("failed to append reading to output file: %v", err)
	}
}

func (w *recordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
