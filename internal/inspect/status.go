package inspect

import (
	"fmt"
	"net/http"
	"text/template"
	"time"
)

// handleStatusPage renders a human-readable summary, generalizing
// gombadi-dnsseeder/http.go's per-seeder statusHandler/summaryHandler
// pages to the single network this process runs. There's only one
// Store per process (no config.seeders dictionary to page through).
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	startT := time.Now()
	stats := s.store.SnapshotStats()

	writeHeader(w)
	fmt.Fprintf(w, "<h2>kaseeder status</h2>\n")
	fmt.Fprintf(w, "<p>uptime: %s</p>\n", time.Since(s.started).String())

	t, err := template.New("status").Parse(statusTemplate)
	if err != nil {
		s.logger.Errorf("inspect: parse status template failed: %v\n", err)
	} else if err := t.Execute(w, stats); err != nil {
		s.logger.Errorf("inspect: execute status template failed: %v\n", err)
	}

	writeFooter(w, startT)
}

const statusTemplate = `
<table border=1>
  <tr><th>state</th><th>count</th></tr>
  <tr><td>Good</td><td>{{.Good}}</td></tr>
  <tr><td>Stale</td><td>{{.Stale}}</td></tr>
  <tr><td>Bad</td><td>{{.Bad}}</td></tr>
  <tr><td>New</td><td>{{.New}}</td></tr>
</table>
<p>rejected total: {{.RejectedTotal}}<br>
persist failures: {{.PersistFailuresTotal}}<br>
retired total: {{.RetiredTotal}}</p>
`

func writeHeader(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><title>kaseeder</title></head><body>\n")
}

func writeFooter(w http.ResponseWriter, start time.Time) {
	fmt.Fprintf(w, "<p>page generated in %s</p></body></html>\n", time.Since(start))
}
