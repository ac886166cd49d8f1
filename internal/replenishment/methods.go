package replenishment

import (
	"sort"
	"strings"
)

// methodNames maps the backend's forecast method codes to display names.
var methodNames = map[string]string{
	"sma":          "Média Móvel Simples",
	"wma":          "Média Móvel Ponderada",
	"ema":          "Suavização Exponencial Simples",
	"holt":         "Holt (Tendência)",
	"holt_winters": "Holt-Winters (Sazonal)",
	"croston":      "Croston (Demanda Intermitente)",
	"sba":          "Syntetos-Boylan (SBA)",
	"tsb":          "Teunter-Syntetos-Babai (TSB)",
	"linear":       "Regressão Linear",
	"auto":         "Seleção Automática",
	"ml":           "Machine Learning",
}

// MethodDisplayName returns the display name for a method code, or the code
// itself when it is unknown.
func MethodDisplayName(code string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	if name, ok := methodNames[key]; ok {
		return name
	}
	return code
}

// Method is one entry of the method lookup table.
type Method struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Methods returns the lookup table sorted by code.
func Methods() []Method {
	out := make([]Method, 0, len(methodNames))
	for code, name := range methodNames {
		out = append(out, Method{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
