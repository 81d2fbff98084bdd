package web

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

func itoa(value int) string {
	return strconv.Itoa(value)
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func statusDot(connected bool) string {
	if connected {
		return `<span class="dot online" title="connected"></span>`
	}
	return `<span class="dot offline" title="disconnected"></span>`
}

func nameList(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	escaped := make([]string, 0, len(names))
	for _, name := range names {
		escaped = append(escaped, esc(name))
	}
	return strings.Join(escaped, ", ")
}
