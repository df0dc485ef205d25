package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"streamq/internal/api"
	"streamq/internal/logging"
)

// Remote is an in-memory stand-in for the queue service. It implements the
// request/response surface the client uses, with just enough behavior to
// exercise the orchestration layers: duplicate detection, reorder, category
// cascade, download and clip job tables, positions and heatmaps.
type Remote struct {
	Server *httptest.Server

	mu         sync.Mutex
	items      []api.QueueItem
	categories []api.Category
	positions  map[string]float64
	heatmaps   map[string]api.Heatmap
	downloads  map[string]api.DownloadStatus
	clips      map[string]api.ClipStatus
	settings   api.Settings
	nextID     int
	reorders   [][]string
}

// NewRemote starts a fake service and tears it down with the test.
func NewRemote(t *testing.T) *Remote {
	t.Helper()
	remote := &Remote{
		positions: map[string]float64{},
		heatmaps:  map[string]api.Heatmap{},
		downloads: map[string]api.DownloadStatus{},
		clips:     map[string]api.ClipStatus{},
		settings:  api.DefaultSettings(),
	}
	remote.Server = httptest.NewServer(remote.handler())
	t.Cleanup(remote.Server.Close)
	return remote
}

// Client returns an API client wired to this fake.
func (r *Remote) Client() *api.Client {
	return api.NewWithDoer(r.Server.URL, r.Server.Client(), logging.NewNop())
}

// Seed replaces the queue contents.
func (r *Remote) Seed(items ...api.QueueItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append([]api.QueueItem(nil), items...)
}

// Item builds a queue item with a deterministic id derived from the slug.
func Item(id, url string) api.QueueItem {
	return api.QueueItem{ID: id, URL: url, Title: "Video " + id, Duration: 100}
}

// ItemIDs returns the current server-side queue order.
func (r *Remote) ItemIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.items))
	for i, item := range r.items {
		ids[i] = item.ID
	}
	return ids
}

// ItemByID returns the current server-side copy of an item.
func (r *Remote) ItemByID(id string) (api.QueueItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			return item, true
		}
	}
	return api.QueueItem{}, false
}

// Reorders returns every full-order push received so far.
func (r *Remote) Reorders() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.reorders...)
}

// SetDownload installs or replaces one download job snapshot.
func (r *Remote) SetDownload(id string, status api.DownloadStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads[id] = status
}

// SetClip installs or replaces one clip job snapshot.
func (r *Remote) SetClip(id string, status api.ClipStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips[id] = status
}

// SetPosition seeds a saved playback offset.
func (r *Remote) SetPosition(id string, position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[id] = position
}

// Position reads back a saved playback offset.
func (r *Remote) Position(id string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positions[id]
}

// SetHeatmap seeds the view counts for an item.
func (r *Remote) SetHeatmap(id string, heat api.Heatmap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heatmaps[id] = heat
}

// Heatmap reads back the view counts for an item.
func (r *Remote) Heatmap(id string) api.Heatmap {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := api.Heatmap{}
	for second, count := range r.heatmaps[id] {
		out[second] = count
	}
	return out
}

// Settings reads back the stored settings object.
func (r *Remote) Settings() api.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Categories reads back the category definitions in order.
func (r *Remote) Categories() []api.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Category(nil), r.categories...)
}

func (r *Remote) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/queue", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		items := append([]api.QueueItem{}, r.items...)
		r.mu.Unlock()
		writeJSON(w, items)
	})
	mux.HandleFunc("POST /api/queue", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, item := range r.items {
			if item.URL == body.URL {
				writeJSON(w, map[string]any{"error": "Already in queue", "duplicate": true})
				return
			}
		}
		r.nextID++
		item := api.QueueItem{
			ID:       fmt.Sprintf("item-%d", r.nextID),
			URL:      body.URL,
			Title:    fmt.Sprintf("Video %d", r.nextID),
			Duration: 100,
		}
		r.items = append(r.items, item)
		writeJSON(w, item)
	})
	mux.HandleFunc("POST /api/queue/clear", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.items = nil
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/queue/reorder", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		r.reorders = append(r.reorders, body.IDs)
		byID := make(map[string]api.QueueItem, len(r.items))
		for _, item := range r.items {
			byID[item.ID] = item
		}
		reordered := make([]api.QueueItem, 0, len(r.items))
		for _, id := range body.IDs {
			if item, ok := byID[id]; ok {
				reordered = append(reordered, item)
				delete(byID, id)
			}
		}
		for _, item := range r.items {
			if _, left := byID[item.ID]; left {
				reordered = append(reordered, item)
			}
		}
		r.items = reordered
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/queue/move", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			IDs      []string `json:"ids"`
			Position string   `json:"position"`
		}
		readJSON(req, &body)
		moving := make(map[string]struct{}, len(body.IDs))
		for _, id := range body.IDs {
			moving[id] = struct{}{}
		}
		r.mu.Lock()
		var picked, rest []api.QueueItem
		for _, item := range r.items {
			if _, ok := moving[item.ID]; ok {
				picked = append(picked, item)
			} else {
				rest = append(rest, item)
			}
		}
		if body.Position == "top" {
			r.items = append(picked, rest...)
		} else {
			r.items = append(rest, picked...)
		}
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/queue/bulk-delete", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		readJSON(req, &body)
		drop := make(map[string]struct{}, len(body.IDs))
		for _, id := range body.IDs {
			drop[id] = struct{}{}
		}
		r.mu.Lock()
		kept := r.items[:0]
		for _, item := range r.items {
			if _, gone := drop[item.ID]; !gone {
				kept = append(kept, item)
			}
		}
		r.items = kept
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/queue/bulk-category", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			IDs      []string `json:"ids"`
			Category *string  `json:"category"`
		}
		readJSON(req, &body)
		want := make(map[string]struct{}, len(body.IDs))
		for _, id := range body.IDs {
			want[id] = struct{}{}
		}
		r.mu.Lock()
		for i := range r.items {
			if _, ok := want[r.items[i].ID]; ok {
				r.items[i].Category = deref(body.Category)
			}
		}
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/queue/{id}/category", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Category *string `json:"category"`
		}
		readJSON(req, &body)
		id := req.PathValue("id")
		r.mu.Lock()
		for i := range r.items {
			if r.items[i].ID == id {
				r.items[i].Category = deref(body.Category)
			}
		}
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("DELETE /api/queue/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := req.PathValue("id")
		r.mu.Lock()
		kept := r.items[:0]
		for _, item := range r.items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		r.items = kept
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})

	mux.HandleFunc("GET /api/categories", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		cats := append([]api.Category{}, r.categories...)
		r.mu.Unlock()
		writeJSON(w, cats)
	})
	mux.HandleFunc("POST /api/categories", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, cat := range r.categories {
			if cat.Name == body.Name {
				writeJSON(w, map[string]any{"error": "category exists", "duplicate": true})
				return
			}
		}
		r.nextID++
		cat := api.Category{ID: fmt.Sprintf("cat-%d", r.nextID), Name: body.Name, Color: body.Color}
		r.categories = append(r.categories, cat)
		writeJSON(w, cat)
	})
	mux.HandleFunc("PUT /api/categories/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		readJSON(req, &body)
		id := req.PathValue("id")
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.categories {
			if r.categories[i].ID == id {
				if body.Name != "" {
					r.categories[i].Name = body.Name
				}
				if body.Color != "" {
					r.categories[i].Color = body.Color
				}
				writeJSON(w, r.categories[i])
				return
			}
		}
		writeJSON(w, map[string]string{"error": "category not found"})
	})
	mux.HandleFunc("DELETE /api/categories/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := req.PathValue("id")
		r.mu.Lock()
		kept := r.categories[:0]
		for _, cat := range r.categories {
			if cat.ID != id {
				kept = append(kept, cat)
			}
		}
		r.categories = kept
		for i := range r.items {
			if r.items[i].Category == id {
				r.items[i].Category = ""
			}
		}
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/categories/reorder", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		byID := make(map[string]api.Category, len(r.categories))
		for _, cat := range r.categories {
			byID[cat.ID] = cat
		}
		reordered := make([]api.Category, 0, len(r.categories))
		for _, id := range body.IDs {
			if cat, ok := byID[id]; ok {
				reordered = append(reordered, cat)
			}
		}
		r.categories = reordered
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})

	mux.HandleFunc("GET /api/playback/{id}", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		position := r.positions[req.PathValue("id")]
		r.mu.Unlock()
		writeJSON(w, map[string]float64{"position": position})
	})
	mux.HandleFunc("POST /api/playback/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Position float64 `json:"position"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		r.positions[req.PathValue("id")] = body.Position
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("GET /api/heatmap/{id}", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		heat := r.heatmaps[req.PathValue("id")]
		if heat == nil {
			heat = api.Heatmap{}
		}
		r.mu.Unlock()
		writeJSON(w, heat)
	})
	mux.HandleFunc("POST /api/heatmap/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Second int `json:"second"`
		}
		readJSON(req, &body)
		id := req.PathValue("id")
		r.mu.Lock()
		if r.heatmaps[id] == nil {
			r.heatmaps[id] = api.Heatmap{}
		}
		r.heatmaps[id][body.Second]++
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})

	mux.HandleFunc("POST /api/download", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, item := range r.items {
			if item.URL == body.URL {
				r.downloads[item.ID] = api.DownloadStatus{Status: api.DownloadQueued, Title: item.Title}
				writeJSON(w, map[string]string{"id": item.ID, "title": item.Title})
				return
			}
		}
		writeJSON(w, map[string]string{"error": "not in queue"})
	})
	mux.HandleFunc("GET /api/download/all-status", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		statuses := make(map[string]api.DownloadStatus, len(r.downloads))
		for id, status := range r.downloads {
			statuses[id] = status
		}
		r.mu.Unlock()
		writeJSON(w, statuses)
	})
	mux.HandleFunc("POST /api/download/clear-done", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		for id, status := range r.downloads {
			if status.Status.Terminal() {
				delete(r.downloads, id)
			}
		}
		r.mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})

	mux.HandleFunc("POST /api/clip-download", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			URL   string `json:"url"`
			Start int    `json:"start"`
			End   int    `json:"end"`
		}
		readJSON(req, &body)
		r.mu.Lock()
		r.nextID++
		id := fmt.Sprintf("clip-%d", r.nextID)
		r.clips[id] = api.ClipStatus{Status: api.ClipPreparing}
		r.mu.Unlock()
		writeJSON(w, map[string]string{"id": id})
	})
	mux.HandleFunc("GET /api/clip-status/{id}", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		status, ok := r.clips[req.PathValue("id")]
		r.mu.Unlock()
		if !ok {
			writeJSON(w, map[string]string{"error": "unknown clip job"})
			return
		}
		writeJSON(w, status)
	})

	mux.HandleFunc("GET /api/settings", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		settings := r.settings
		r.mu.Unlock()
		writeJSON(w, settings)
	})
	mux.HandleFunc("PUT /api/settings", func(w http.ResponseWriter, req *http.Request) {
		var settings api.Settings
		readJSON(req, &settings)
		r.mu.Lock()
		r.settings = settings
		r.mu.Unlock()
		writeJSON(w, settings)
	})

	mux.HandleFunc("GET /api/cookies/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, api.CookieStatus{AutoExtract: true, Exists: true, Count: 12})
	})
	mux.HandleFunc("POST /api/cookies/extract", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, api.CookieExtractResult{OK: true, Browser: "firefox", Count: 12})
	})

	mux.HandleFunc("GET /api/data/export", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		bundle := map[string]any{"queue": r.items, "settings": r.settings}
		r.mu.Unlock()
		writeJSON(w, bundle)
	})
	mux.HandleFunc("POST /api/data/import", func(w http.ResponseWriter, req *http.Request) {
		file, _, err := req.FormFile("file")
		if err != nil {
			writeJSON(w, map[string]string{"error": "missing file"})
			return
		}
		defer file.Close()
		var bundle struct {
			Queue    []api.QueueItem `json:"queue"`
			Settings api.Settings    `json:"settings"`
		}
		if err := json.NewDecoder(file).Decode(&bundle); err != nil {
			writeJSON(w, map[string]string{"error": "bad bundle"})
			return
		}
		r.mu.Lock()
		r.items = bundle.Queue
		r.settings = bundle.Settings
		count := len(r.items)
		r.mu.Unlock()
		writeJSON(w, api.ImportResult{OK: true, QueueCount: count})
	})

	mux.HandleFunc("GET /api/related", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"related": []api.RelatedVideo{
			{URL: "https://example.com/v/rel-1", Title: "Related One", Duration: "12:34"},
			{URL: "https://example.com/v/rel-2", Title: "Related Two", Duration: "1:02"},
		}})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func readJSON(req *http.Request, out any) {
	defer req.Body.Close()
	json.NewDecoder(req.Body).Decode(out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
