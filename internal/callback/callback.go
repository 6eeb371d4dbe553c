package callback

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

// State is the result of a handshake as reported by the callback.
type State string

const (
	StateFailed    State = "failed"
	StateConnected State = "connected"
	StatePending   State = "pending"
)

// Messages posted to the opener window.
const (
	MessageError   = "calendar_auth_error"
	MessageSuccess = "calendar_auth_success"
)

// CloseDelay is how long the page stays visible before closing or redirecting.
const CloseDelay = 2 * time.Second

// Result is what the callback communicates.
type Result struct {
	State State
	Code  string
	Error string
}

// Message is the payload posted to the opener window.
type Message struct {
	Type  string `json:"type"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Outcome classifies the callback parameters: an error wins over a code, and
// neither means the handshake is still being processed. The broker's state
// parameter carries nothing the outcome depends on.
func Outcome(code, _ string, errParam string) Result {
	switch {
	case errParam != "":
		return Result{State: StateFailed, Error: errParam}
	case code != "":
		return Result{State: StateConnected, Code: code}
	default:
		return Result{State: StatePending}
	}
}

// Message returns the opener message for the result, or nil when there is
// nothing to report.
func (r Result) Message() *Message {
	switch r.State {
	case StateFailed:
		return &Message{Type: MessageError, Error: r.Error}
	case StateConnected:
		return &Message{Type: MessageSuccess, Code: r.Code}
	default:
		return nil
	}
}

type pageData struct {
	State        State
	Error        string
	Message      *Message
	TargetOrigin string
	RedirectURL  string
	DelayMillis  int64
}

// Renderer produces callback pages.
type Renderer struct {
	tmpl         *template.Template
	redirectURL  string
	targetOrigin string
}

// NewRenderer creates a Renderer that sends users without an opener window
// back to appURL.
func NewRenderer(appURL string) (*Renderer, error) {
	u, err := url.Parse(appURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid application URL %q", appURL)
	}
	tmpl, err := template.New("callback").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse callback template: %w", err)
	}
	return &Renderer{
		tmpl:         tmpl,
		redirectURL:  appURL,
		targetOrigin: u.Scheme + "://" + u.Host,
	}, nil
}

// Render writes the HTML page for a result.
func (r *Renderer) Render(res Result) ([]byte, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, pageData{
		State:        res.State,
		Error:        res.Error,
		Message:      res.Message(),
		TargetOrigin: r.targetOrigin,
		RedirectURL:  r.redirectURL,
		DelayMillis:  CloseDelay.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render callback page: %w", err)
	}
	return buf.Bytes(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Calendar Connection</title>
  <style>
    body { font-family: Arial, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background-color: #f5f5f5; }
    .container { text-align: center; padding: 20px; background: white; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
    .success { color: #22c55e; }
    .error { color: #ef4444; }
    .spinner { border: 3px solid #f3f3f3; border-top: 3px solid #3498db; border-radius: 50%; width: 30px; height: 30px; animation: spin 1s linear infinite; margin: 20px auto; }
    @keyframes spin { 0% { transform: rotate(0deg); } 100% { transform: rotate(360deg); } }
  </style>
</head>
<body>
  <div class="container" data-state="{{.State}}">
  {{- if eq .State "failed"}}
    <h2 class="error">Connection Failed</h2>
    <p>Error: {{.Error}}</p>
  {{- else if eq .State "connected"}}
    <h2 class="success">Connection Successful!</h2>
    <p>Your Google Calendar has been connected.</p>
    <div class="spinner"></div>
    <p>Closing window...</p>
  {{- else}}
    <h2>Processing...</h2>
    <div class="spinner"></div>
  {{- end}}
  </div>
  <script>
    (function () {
      var message = {{.Message}};
      var delay = {{.DelayMillis}};
      if (window.opener) {
        if (message) {
          window.opener.postMessage(message, {{.TargetOrigin}});
        }
        setTimeout(function () { window.close(); }, delay);
      } else {
        setTimeout(function () { window.location.href = {{.RedirectURL}}; }, delay);
      }
    })();
  </script>
</body>
</html>
`
