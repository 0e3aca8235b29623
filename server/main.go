package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CoHammo/jotter/crdt"
	"github.com/fatih/color"
)

// Flags represents the command-line flags that are passed to jotter's server.
type Flags struct {
	Addr  string
	File  string
	Text  string
	Site  uint
	Debug bool
}

// parseFlags parses command-line flags.
func parseFlags() Flags {
	addr := flag.String("addr", ":8080", "Server's network address")
	file := flag.String("file", "", "The file to load the document from, and save it to")
	text := flag.String("text", "", "The text file to seed a new document from, and export its text to on save")
	site := flag.Uint("site", 1, "The site ID used for the document's inserts")
	enableDebug := flag.Bool("debug", false, "Enable debugging mode to log the document state after each edit")

	flag.Parse()

	return Flags{
		Addr:  *addr,
		File:  *file,
		Text:  *text,
		Site:  *site,
		Debug: *enableDebug,
	}
}

// openDocument loads the document from flags.File. Without a snapshot it starts
// a new document, seeded with the contents of flags.Text if that file exists.
func openDocument(flags Flags) (*crdt.Document, error) {
	if flags.File != "" {
		doc, err := crdt.Load(flags.File)
		if !errors.Is(err, os.ErrNotExist) {
			return doc, err
		}
	}

	doc := crdt.New(crdt.SiteID(flags.Site))
	if flags.Text == "" {
		return doc, nil
	}

	data, err := os.ReadFile(flags.Text)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if err := doc.Insert(0, string(data)); err != nil {
		return nil, err
	}
	return doc, nil
}

func main() {
	flags := parseFlags()

	doc, err := openDocument(flags)
	if err != nil {
		log.Fatal("Error loading document, exiting. ", err)
	}

	h := newHub(doc, flags.File, flags.Debug)
	h.textFile = flags.Text

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleConn)
	srv := &http.Server{Addr: flags.Addr, Handler: mux}

	// Handle incoming messages.
	go h.run()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	// Start the server.
	color.Green("Starting server on %s", flags.Addr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Error starting server, exiting. ", err)
	}

	h.stop()

	if flags.File != "" {
		if err := h.save(); err != nil {
			log.Fatal("Error saving document. ", err)
		}
		color.Green("Saved document to %s", flags.File)
	}
}
