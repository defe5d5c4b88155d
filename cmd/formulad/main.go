// formulad is a small daemon that watches a formula-library directory
// and pushes compile/diagnostic results to connected dev-tool clients
// over a websocket as files change, per the DOMAIN STACK table:
// fsnotify for the directory watch, gorilla/websocket grounded on
// _examples/launix-de-memcp/scm/network.go's upgrade-then-read-loop
// shape, and dc0d/onexit grounded on storage/settings.go's
// InitSettings, registering a shutdown hook that closes the directory
// watcher on exit. The hook does not wait for an in-flight compile to
// finish.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dc0d/onexit"
	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"github.com/launix-de/formula-compiler/formulalib"
	"github.com/launix-de/formula-compiler/parser"
)

// broadcaster fans compile results out to every connected websocket
// client, mirroring scm/network.go's per-connection write-mutex
// discipline (ws.WriteMessage is not safe for concurrent callers).
type broadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{clients: make(map[*websocket.Conn]struct{})}
}

func (b *broadcaster) add(c *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
}

func (b *broadcaster) remove(c *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, c)
}

func (b *broadcaster) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Println("formulad: marshal:", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Println("formulad: write:", err)
		}
	}
}

type jobReport struct {
	ID    string `json:"id"`
	Entry string `json:"entry"`
	Error string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

func (b *broadcaster) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("formulad: upgrade:", err)
		return
	}
	b.add(ws)
	defer func() {
		b.remove(ws)
		ws.Close()
	}()
	// The read loop only exists to detect the client going away; formulad
	// never accepts messages from dev-tool clients, only pushes to them.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func compileDirectory(dir string, opts parser.Options, b *broadcaster) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.frm"))
	if err != nil {
		log.Println("formulad: glob:", err)
		return
	}
	var entries []formulalib.FormulaEntry
	for _, m := range matches {
		f, err := formulalib.FileSource{Path: m}.Open(nil)
		if err != nil {
			log.Println("formulad: open", m, err)
			continue
		}
		loaded, err := formulalib.LoadEntries(f)
		f.Close()
		if err != nil {
			log.Println("formulad: load", m, err)
			continue
		}
		entries = append(entries, loaded...)
	}

	jobs := formulalib.CompileAll(entries, opts, true)
	for _, job := range jobs {
		report := jobReport{ID: job.ID.String(), Entry: job.Entry.Name}
		if job.Err != nil {
			report.Error = job.Err.Error()
		}
		b.send(report)
	}
}

func watchDirectory(dir string, opts parser.Options, b *broadcaster) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	onexit.Register(func() { watcher.Close() })

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	compileDirectory(dir, opts, b)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && strings.HasSuffix(event.Name, ".frm") {
				compileDirectory(dir, opts, b)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("formulad: watch:", err)
		}
	}
}

func main() {
	var (
		dir  = flag.String("dir", ".", "formula-library directory to watch for .frm files")
		addr = flag.String("addr", ":8765", "websocket listen address")
	)
	flag.Parse()
	opts := parser.Options{RecognizeExtensions: true}

	b := newBroadcaster()

	go func() {
		if err := watchDirectory(*dir, opts, b); err != nil {
			log.Println("formulad: watcher:", err)
		}
	}()

	http.HandleFunc("/ws", b.handleWS)
	fmt.Println("formulad listening on", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
