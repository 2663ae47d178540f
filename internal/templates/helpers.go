package templates

import (
	"html/template"
	"time"

	"github.com/csg33k/cps-dct/internal/adapters/cps/spec"
)

var funcs = template.FuncMap{
	"fullYear":    fullYear,
	"formatTime":  formatTime,
	"statusClass": statusClass,
	"decimals":    spec.ImpliedDecimals,
}

// fullYear turns a two-digit token into "2015".
func fullYear(token string) string {
	return "20" + token
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func statusClass(status string) string {
	if status == "ok" {
		return "status-ok"
	}
	return "status-failed"
}
