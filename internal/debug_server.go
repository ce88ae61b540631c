// Package internal hosts the HTTP debug dashboard: a single HTML page
// rendering the live room occupancy, the online users, and the broker
// counters. It is read-only and meant for a local operator, not for
// clients.
package internal

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"chat-hall/contract"
	"chat-hall/observability"
)

//go:embed stats.html
var templatesFS embed.FS

type RoomRow struct {
	Name    string
	Members int
}

type PageData struct {
	GeneratedAt string
	Rooms       []RoomRow
	Users       []string
	Stats       observability.Stats
}

// StartDebugServer serves the dashboard on /debug. The caller owns the
// returned server and is responsible for shutting it down.
func StartDebugServer(log *slog.Logger, port int, registry contract.IRegistry,
	counters *observability.Counters) *http.Server {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "stats.html"))

	mux.HandleFunc("/debug", func(w http.ResponseWriter, r *http.Request) {
		counts := registry.RoomCounts()
		rooms := make([]RoomRow, 0, len(counts))
		for name, members := range counts {
			rooms = append(rooms, RoomRow{Name: name, Members: members})
		}
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })

		data := PageData{
			GeneratedAt: time.Now().Format(time.RFC3339),
			Rooms:       rooms,
			Users:       registry.OnlineUsers(),
			Stats:       counters.Snapshot(),
		}
		if err := tmpl.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		log.Info("Debug dashboard listening", "port", port, "endpoint", "/debug")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
	return server
}
