package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/gops/agent"
	"github.com/nicolagi/rolodex/server"
	"github.com/nicolagi/rolodex/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	configFile := flag.String("config", os.ExpandEnv("$HOME/lib/rolodex/rolodex.config"), "location of configuration file")
	flag.Parse()

	opts, err := loadConfig(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}
	opts.applyEnvironment(os.Getenv)
	opts.applyDefaultsForMissingProperties()

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}

	observer, err := storage.NewPrometheusObserver("rolodex", nil)
	if err != nil {
		log.WithField("err", err).Fatal("Could not register metrics")
	}

	container, closeContainer, err := storage.NewContainer(storage.BlobOptions{
		Type: opts.Blobs.Type,
		AWSOptions: storage.AWSOptions{
			Profile:  opts.Blobs.Profile,
			Region:   opts.Blobs.Region,
			Endpoint: opts.Blobs.Endpoint,
		},
		Bucket:    opts.Blobs.Bucket,
		Path:      opts.Blobs.Path,
		CachePath: opts.Blobs.CachePath,
	})
	if err != nil {
		log.WithField("err", err).Fatal("Could not set up blob backend")
	}
	defer func() {
		if err := closeContainer(); err != nil {
			log.WithField("err", err).Warn("Could not close blob backend")
		}
	}()

	table, err := storage.NewTable(storage.DocumentOptions{
		Type: opts.Documents.Type,
		AWSOptions: storage.AWSOptions{
			Profile:  opts.Documents.Profile,
			Region:   opts.Documents.Region,
			Endpoint: opts.Documents.Endpoint,
		},
		Table: opts.Documents.Table,
	})
	if err != nil {
		log.WithField("err", err).Fatal("Could not set up document backend")
	}

	var metrics *http.Server
	if opts.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics = &http.Server{
			Addr:              opts.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.WithField("addr", opts.MetricsAddress).Info("Serving metrics")
			if err := metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithField("err", err).Error("Metrics listener failed")
			}
		}()
	}

	srv := server.New(
		server.WithAddress(opts.Address),
		server.WithAppName(opts.AppName),
		server.WithSourceURL(opts.SourceURL),
		server.WithBlobs(storage.NewBlobs(container, observer)),
		server.WithDocuments(storage.NewDocuments(table, observer)),
	)
	addr, err := srv.Listen()
	if err != nil {
		log.WithField("err", err).Fatal("Could not listen")
	}
	log.WithFields(log.Fields{"addr": addr}).Info("Listening")

	// Shutdown makes srv.Serve() return, so that deferred clean-up runs.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		log.WithField("signal", sig).Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if metrics != nil {
			if err := metrics.Shutdown(ctx); err != nil {
				log.WithField("err", err).Warn("Could not shut down the metrics listener cleanly")
			}
		}
		if err := srv.Shutdown(ctx); err != nil {
			log.WithFields(log.Fields{"err": err}).Warn("Could not shut down the server cleanly")
		}
	}()

	if err := srv.Serve(); err != nil {
		log.Error(err)
	}
}
