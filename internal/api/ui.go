package api

import (
	"net/http"
)

const progressUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>intphys - generation</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header, .progress, footer {
            background: #16213e;
            padding: 10px 20px;
            border-bottom: 1px solid #0f3460;
        }
        header { display: flex; justify-content: space-between; align-items: center; }
        header h1 { font-size: 16px; font-weight: normal; }
        #status { padding: 4px 10px; border-radius: 4px; font-size: 12px; }
        #status.connected { background: #1b4332; color: #95d5b2; }
        #status.disconnected { background: #7f1d1d; color: #fca5a5; }
        #status.connecting { background: #78350f; color: #fcd34d; }
        .bar { height: 8px; background: #0f3460; border-radius: 4px; margin: 8px 0; }
        #fill { height: 100%; width: 0; background: #059669; border-radius: 4px; }
        #summary { font-size: 12px; color: #9ca3af; }
        button {
            background: #dc2626;
            border: none;
            border-radius: 4px;
            padding: 6px 12px;
            color: #fff;
            font-family: monospace;
            cursor: pointer;
        }
        button:disabled { background: #374151; cursor: not-allowed; }
        #events { flex: 1; overflow-y: auto; padding: 10px; }
        .event {
            padding: 6px 12px;
            margin-bottom: 4px;
            background: #16213e;
            border-radius: 4px;
            border-left: 3px solid #0f3460;
            font-size: 13px;
            display: flex;
            gap: 12px;
        }
        .event.level-error { border-left-color: #dc2626; background: #1f1515; }
        .event.level-warn { border-left-color: #d97706; }
        .event.scope-scene { border-left-color: #059669; }
        .event.scope-run { border-left-color: #7c3aed; }
        .event.scope-director { border-left-color: #0891b2; }
        .ts { color: #6b7280; font-size: 11px; min-width: 90px; }
        .name { color: #60a5fa; font-weight: bold; min-width: 160px; }
        .msg { color: #9ca3af; }
        footer { border-top: 1px solid #0f3460; font-size: 11px; color: #6b7280; }
    </style>
</head>
<body>
    <header>
        <h1>intphys - scene generation</h1>
        <span id="status" class="disconnected">Disconnected</span>
    </header>
    <div class="progress">
        <div id="summary">waiting for the director</div>
        <div class="bar"><div id="fill"></div></div>
        <button id="stopBtn" onclick="stopRun()">Stop</button>
    </div>
    <div id="events"></div>
    <footer><span id="count">0</span> events | WebSocket: /ws/events</footer>
    <script>
        const eventsDiv = document.getElementById('events');
        const statusEl = document.getElementById('status');
        const countEl = document.getElementById('count');
        let eventCount = 0;
        let ws = null;

        function formatTime(ts) {
            const d = new Date(ts);
            return isNaN(d) ? ts : d.toLocaleTimeString('en-US', { hour12: false });
        }

        function renderEvent(e) {
            const div = document.createElement('div');
            div.className = 'event level-' + e.level + ' scope-' + e.event.split('.')[0];
            const scene = e.fields && e.fields.scene ? ' ' + e.fields.scene : '';
            div.innerHTML =
                '<span class="ts">' + formatTime(e.ts) + '</span>' +
                '<span class="name">' + e.event + '</span>' +
                '<span class="msg">' + (e.msg || '') + scene + '</span>';
            eventsDiv.appendChild(div);
            countEl.textContent = ++eventCount;
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
            while (eventsDiv.children.length > 500) {
                eventsDiv.removeChild(eventsDiv.firstChild);
            }
        }

        function setStatus(status) {
            statusEl.className = status;
            statusEl.textContent = status.charAt(0).toUpperCase() + status.slice(1);
        }

        function connect() {
            setStatus('connecting');
            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + location.host + '/ws/events');
            ws.onopen = function() { setStatus('connected'); };
            ws.onmessage = function(msg) {
                try { renderEvent(JSON.parse(msg.data)); } catch (err) { console.error(err); }
            };
            ws.onclose = function() {
                setStatus('disconnected');
                setTimeout(connect, 3000);
            };
        }

        function refresh() {
            fetch('/progress').then(function(r) { return r.json(); }).then(function(p) {
                if (p.total === undefined) return;
                const pct = p.total ? Math.round(100 * p.index / p.total) : 100;
                document.getElementById('fill').style.width = pct + '%';
                document.getElementById('summary').textContent =
                    'scene ' + Math.min(p.index + 1, p.total) + '/' + p.total +
                    (p.scene ? ' ' + p.scene + ' run ' + p.run + ' (' + p.state + ')' : '') +
                    ' | tick ' + p.ticker + '/' + p.max_tick +
                    ' | restarted ' + p.restarted + (p.done ? ' | done' : '');
                document.getElementById('stopBtn').disabled = p.done;
            }).catch(function() {});
        }

        function stopRun() {
            fetch('/control/stop', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ reason: 'stopped from the web page' })
            }).then(refresh);
        }

        connect();
        refresh();
        setInterval(refresh, 1000);
    </script>
</body>
</html>
`

// uiHandler serves the progress page on /.
func uiHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(progressUIHTML))
}
