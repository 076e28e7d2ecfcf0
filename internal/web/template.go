package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/jholub/mactivity/internal/stats"
	"github.com/jholub/mactivity/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"hours": func(h float64) string {
		return fmt.Sprintf("%.2f", h)
	},
	"clock": func(t time.Time) string {
		return t.Local().Format("15:04:05")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>mactivity</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.pause { color: orange; }
.sleep { color: #3366cc; }
.shutdown { color: red; }
.maintenance { color: #888; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>mactivity<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Current</th><td id="current-state" class="{{.CurrentState}}">{{.CurrentState}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
{{if not .LastRefresh.IsZero}}<tr><th>Last refresh</th><td>{{clock .LastRefresh}}</td></tr>{{end}}
<tr><th>Events in window</th><td>{{.EventCount}}</td></tr>
</table>

<h2>Summary</h2>
<table>
<tr><th>Active</th><td class="active">{{hours .Summary.ActiveHours}} h</td></tr>
<tr><th>Pause</th><td class="pause">{{hours .Summary.PauseHours}} h</td></tr>
<tr><th>Sleep</th><td class="sleep">{{hours .Summary.SleepHours}} h</td></tr>
<tr><th>Shutdown</th><td class="shutdown">{{hours .Summary.ShutdownHours}} h</td></tr>
<tr><th>Efficiency</th><td>{{hours .Summary.EfficiencyPercent}} %</td></tr>
<tr><th>Billable</th><td>{{hours .Summary.Billable}}</td></tr>
</table>

{{if .DailyRows}}
<h2>Daily</h2>
<table>
<tr><th>Date</th><td>Active</td><td>Pause</td><td>Sleep</td><td>Events</td></tr>
{{range .DailyRows}}
<tr><th>{{.Date}}</th><td class="active">{{hours .ActiveHours}}</td><td class="pause">{{hours .PauseHours}}</td><td class="sleep">{{hours .SleepHours}}</td><td>{{.EventCount}}</td></tr>
{{end}}
</table>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{range $name, $err := .SourceErrors}}<tr><th>source {{$name}}</th><td class="disconnected">{{$err}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Refresh</th><td>{{.Config.RefreshSecs}}s</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/timeline.json">timeline</a> &middot; <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("current-state");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "disconnected");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(evt) {
      try {
        var msg = JSON.parse(evt.data);
        if (msg.activity && msg.activity.state) {
          stateEl.textContent = msg.activity.state;
          stateEl.className = msg.activity.state;
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

type dailyRow struct {
	Date string
	stats.Daily
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime()/Ready() methods but the template needs fields,
	// and the daily map needs a stable order.
	rows := make([]dailyRow, 0, len(snap.Daily))
	for _, d := range stats.Dates(snap.Daily) {
		rows = append(rows, dailyRow{Date: string(d), Daily: snap.Daily[d]})
	}
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Ready     bool
		DailyRows []dailyRow
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Ready:     snap.Ready(),
		DailyRows: rows,
	}
	indexTmpl.Execute(w, data)
}
