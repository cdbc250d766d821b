package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceVersion = "1.0.0"

const rootPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Quill Notes API</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background-color: #f5f5f5; }
        .container { background-color: white; padding: 20px; border-radius: 8px; }
        code { background-color: #f0f0f0; padding: 2px 6px; border-radius: 3px; }
        .endpoint { background-color: #fff3cd; padding: 10px; margin: 10px 0; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Quill Notes API</h1>
        <p>Version: <code>` + serviceVersion + `</code></p>
        <h2>Endpoints</h2>
        <div class="endpoint"><code>POST /auth/register</code> - Create an account</div>
        <div class="endpoint"><code>POST /auth/login</code> - Obtain a bearer token</div>
        <div class="endpoint"><code>GET /users/me</code> - Current account</div>
        <div class="endpoint"><code>GET|POST /categories</code>, <code>GET|PUT|DELETE /categories/{id}</code></div>
        <div class="endpoint"><code>GET|POST /notes</code>, <code>GET|PUT|DELETE /notes/{id}</code></div>
        <div class="endpoint"><code>GET /notes/search?q=</code> - Search notes</div>
        <div class="endpoint"><code>GET /health</code> - Health check</div>
        <div class="endpoint"><code>GET /metrics</code> - Prometheus metrics</div>
    </div>
</body>
</html>
`

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rootPageHTML))
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   serviceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
