package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/obstacle"
	"github.com/gwillem/roverplan/pkg/render"
	"github.com/gwillem/roverplan/pkg/telemetry"
)

type ServeCommand struct {
	ScenarioOptions
	Listen string `long:"listen" default:":8080" description:"HTTP listen address"`
	Hz     int    `long:"hz" default:"20" description:"Control ticks per second"`
	Wait   bool   `long:"wait" description:"Wait for the first websocket client before starting"`
}

func (c *ServeCommand) Execute(args []string) error {
	p, err := c.prepareLive()
	if err != nil {
		return err
	}
	seq, err := p.Sequencer(navigate.Options{})
	if err != nil {
		return err
	}

	var ctrl *navigate.Controller
	hub := telemetry.NewHub(func(obs ...obstacle.Obstacle) error {
		return ctrl.Inject(obs...)
	})
	defer hub.Close()
	rec := &render.Recorder{}
	ctrl = navigate.NewController(seq, c.Hz, p.Injector(seq), rec, hub)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		scene, ok := rec.Scene(p.Path, p.Config.Shape)
		if !ok {
			http.Error(w, "no ticks yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.HTML(w, "roverplan "+p.Scenario.Name, scene, rec.Samples()); err != nil {
			log.Printf("report: %v", err)
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "roverplan %s: frames on /ws, report on /report\n", p.Scenario.Name)
		fmt.Fprintln(w, `send {"type":"obstacle","x":..,"y":..} on /ws to drop an obstacle`)
	})

	srv := &http.Server{Addr: c.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server: %v", err)
		}
	}()
	log.Printf("Serving %s on %s", p.Scenario.Name, c.Listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Wait {
		log.Printf("Waiting for a websocket client")
		for hub.Subscribers() == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	go func() {
		for {
			select {
			case msg := <-ctrl.Logs():
				log.Print(msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	runErr := ctrl.Start(ctx)
	if ctx.Err() == nil {
		res, _ := ctrl.Result()
		fmt.Println(resultTable(p, res, runErr))
		log.Printf("Run finished, still serving /report. Press Ctrl-C to stop.")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
