package httpapi

import "net/http"

// handleUI serves a small manual-testing console for GET /ui: the same
// handful of endpoints a curl-driven smoke test would hit, reachable
// from a browser instead.
func handleUI() http.HandlerFunc {
	page := `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Leader/Follower Console</title>
  <style>
    body { font-family: ui-monospace, Menlo, Consolas, monospace; margin: 24px; color: #1b1b1b; }
    h1 { font-size: 18px; margin-bottom: 4px; }
    .row { display: flex; gap: 8px; margin: 8px 0; flex-wrap: wrap; }
    input { font-family: inherit; padding: 6px 8px; border: 1px solid #bbb; border-radius: 6px; }
    button { font-family: inherit; padding: 6px 12px; border: 1px solid #444; border-radius: 6px; background: #f4f4f4; cursor: pointer; }
    button:hover { background: #e8e8e8; }
    pre { background: #111; color: #cde; padding: 12px; border-radius: 8px; min-height: 80px; overflow: auto; }
  </style>
</head>
<body>
  <h1>Leader/Follower Console</h1>
  <p>One node's view. Writes only succeed here if this node is the leader.</p>

  <div class="row">
    <button id="btnHealth">GET /health</button>
    <button id="btnDump">GET /dump</button>
    <button id="btnDumpVersions">GET /dump-versions</button>
  </div>

  <div class="row">
    <input id="key" placeholder="key">
    <button id="btnGet">GET /get/:key</button>
  </div>

  <div class="row">
    <input id="setKey" placeholder="key">
    <input id="setValue" placeholder="value">
    <button id="btnSet">POST /set</button>
  </div>

  <div class="row">
    <input id="quorum" placeholder="writeQuorum">
    <input id="minDelay" placeholder="minDelayMs">
    <input id="maxDelay" placeholder="maxDelayMs">
    <button id="btnConfig">POST /config</button>
  </div>

  <pre id="out">{}</pre>

  <script>
    const out = document.getElementById("out");

    async function call(method, path) {
      const res = await fetch(path, { method });
      const text = await res.text();
      try { out.textContent = JSON.stringify(JSON.parse(text), null, 2); }
      catch { out.textContent = text; }
    }

    document.getElementById("btnHealth").onclick = () => call("GET", "/health");
    document.getElementById("btnDump").onclick = () => call("GET", "/dump");
    document.getElementById("btnDumpVersions").onclick = () => call("GET", "/dump-versions");

    document.getElementById("btnGet").onclick = () => {
      const key = document.getElementById("key").value;
      call("GET", "/get/" + encodeURIComponent(key));
    };

    document.getElementById("btnSet").onclick = () => {
      const key = encodeURIComponent(document.getElementById("setKey").value);
      const value = encodeURIComponent(document.getElementById("setValue").value);
      call("POST", "/set?key=" + key + "&value=" + value);
    };

    document.getElementById("btnConfig").onclick = async () => {
      const body = {};
      const quorum = document.getElementById("quorum").value;
      const minDelay = document.getElementById("minDelay").value;
      const maxDelay = document.getElementById("maxDelay").value;
      if (quorum !== "") body.writeQuorum = Number(quorum);
      if (minDelay !== "") body.minDelayMs = Number(minDelay);
      if (maxDelay !== "") body.maxDelayMs = Number(maxDelay);
      const res = await fetch("/config", { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify(body) });
      out.textContent = JSON.stringify(await res.json(), null, 2);
    };
  </script>
</body>
</html>`

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(page))
	}
}
