package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/pi-cooler/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"orNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	"join": strings.Join,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Pi Cooler</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Pi Cooler</h1>
{{if .Config.Pins.CoolerFan}}
<h2>Cooler Fan</h2>
<table>
<tr><th>Fan</th><td id="fan-state" class="{{if eq (stateOrUnknown (printf "%s" .Fan)) "ON"}}on{{else if eq (stateOrUnknown (printf "%s" .Fan)) "OFF"}}off{{else}}unknown{{end}}">{{stateOrUnknown (printf "%s" .Fan)}}</td></tr>
<tr><th>Reason</th><td>{{orNone (printf "%s" .FanReason)}}</td></tr>
<tr><th>Temperature</th><td id="temperature">{{if .HasTemperature}}{{printf "%.1f" .Temperature}} &deg;C{{else}}unknown{{end}}</td></tr>
<tr><th>Last check</th><td>{{stamp .LastCheck}}</td></tr>
<tr><th>Thresholds</th><td>{{.Config.RunTemperature}}</td></tr>
<tr><th>Forced run</th><td>{{.Config.RunTimeSpan}}</td></tr>
</table>
{{end}}{{if .Config.Pins.PowerButton}}
<h2>Power Button</h2>
<table>
<tr><th>Last outcome</th><td id="button-outcome">{{orNone (printf "%s" .LastButton.Outcome)}}</td></tr>
<tr><th>Last press</th><td>{{stamp .LastPress}}</td></tr>
<tr><th>Commands</th><td>{{join .Config.ButtonCommands " | "}}</td></tr>
</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Activity</h2>
<table>
<tr><th>Fan ON</th><td>{{.Counts.FanOn}}</td></tr>
<tr><th>Fan OFF</th><td>{{.Counts.FanOff}}</td></tr>
<tr><th>Taps</th><td>{{.Counts.Taps}}</td></tr>
<tr><th>Commands</th><td>{{.Counts.Commands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Pins</th><td>fan={{orNone .Config.Pins.CoolerFan}}{{if .Config.FanReversed}} (reversed){{end}} button={{orNone .Config.Pins.PowerButton}} power_led={{orNone .Config.Pins.PowerLED}} status_led={{orNone .Config.Pins.StatusLED}}</td></tr>
<tr><th>Driver</th><td>{{.Config.Driver}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
