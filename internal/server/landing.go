package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Legal RAG</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #111827; color: #e5e7eb; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #1f2937; border-radius: 10px; padding: 2rem; }
  h1 { font-size: 1.5rem; margin-bottom: 0.5rem; color: #f9fafb; }
  .subtitle { color: #9ca3af; margin-bottom: 1.5rem; }
  .section { margin-bottom: 1.25rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #6b7280; margin-bottom: 0.5rem; }
  pre { background: #111827; border: 1px solid #374151; border-radius: 6px; padding: 0.75rem; overflow-x: auto; font-size: 0.85rem; }
  code, .endpoint { font-family: "SF Mono", Menlo, monospace; }
  .endpoint { color: #a5b4fc; }
  a { color: #60a5fa; text-decoration: none; }
</style>
</head>
<body>
<div class="card">
  <h1>Legal RAG</h1>
  <p class="subtitle">Answers legal questions from indexed Indian court judgements, citing the source and page of every passage used.</p>

  <div class="section">
    <div class="section-title">Ask a question</div>
    <pre><code>curl -s localhost:8080/v1/answer -d '{"question":"When can an arbitral award be set aside?"}' -H 'Content-Type: application/json'</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="endpoint">POST /v1/answer</span> answer with citations</p>
    <p><span class="endpoint">POST /v1/search</span> ranked passages only</p>
    <p><a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP</p>
    <p><a href="/health" class="endpoint">/health</a> index health</p>
    <p><a href="/metrics" class="endpoint">/metrics</a> Prometheus metrics</p>
  </div>
</div>
</body>
</html>`

func landing(c echo.Context) error {
	return c.HTML(http.StatusOK, landingHTML)
}
