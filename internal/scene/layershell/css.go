package layershell

import (
	"log/slog"
	"os"
	"path/filepath"

	"toast/internal/notify"
	"toast/internal/scene"
)

// defaultStylesheet is the bundled popup style. A file at
// ~/.config/toast/style.css replaces it wholesale.
const defaultStylesheet = `
.toast-popup {
  background-color: #f5f7fa;
  color: #1f2933;
  border-radius: 8px;
  border-left: 4px solid #3498db;
}

.toast-popup.dark {
  background-color: #1f2933;
  color: #f5f7fa;
}

.toast-popup.urgency-low {
  border-left-color: #95a5a6;
}

.toast-popup.urgency-critical {
  border-left-color: #e74c3c;
}

.toast-title {
  font-weight: bold;
}

.toast-count {
  opacity: 0.6;
}

.toast-body {
  font-size: 0.92em;
}

.toast-close {
  min-width: 16px;
  min-height: 16px;
  padding: 0;
  background: none;
  border: none;
}

.toast-action {
  padding: 2px 8px;
}

.toast-meter {
  min-height: 6px;
}

.toast-meter progress {
  background-color: #3498db;
}

.toast-popup.urgency-critical .toast-meter progress {
  background-color: #e74c3c;
}
`

// loadStylesheet returns the user stylesheet when one exists, else the
// bundled default.
func loadStylesheet(logger *slog.Logger) string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return defaultStylesheet
	}
	path := filepath.Join(configDir, "toast", "style.css")
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultStylesheet
	}
	logger.Info("loaded user stylesheet", "path", path)
	return string(data)
}

// contentClasses returns the CSS classes describing c so stylesheets
// can target urgency, color scheme, and structure.
func contentClasses(c scene.Content) []string {
	classes := []string{"toast-popup", urgencyClass(c.Urgency)}
	if c.Dark {
		classes = append(classes, "dark")
	} else {
		classes = append(classes, "light")
	}
	if len(c.Actions) > 0 {
		classes = append(classes, "has-actions")
	}
	if c.HasValue {
		classes = append(classes, "has-meter")
	}
	return classes
}

func urgencyClass(u notify.Urgency) string {
	switch u {
	case notify.UrgencyLow:
		return "urgency-low"
	case notify.UrgencyCritical:
		return "urgency-critical"
	default:
		return "urgency-normal"
	}
}
