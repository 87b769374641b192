package orders

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/erazemk/fieldstock/internal/model"
)

// Rule maps free text matching Pattern to Value. Rules are tried in order and
// the first match wins.
type Rule struct {
	Pattern *regexp.Regexp
	Value   string
}

func rule(pattern, value string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Value: value}
}

// TypeRules classifies order types. Patterns run against lower-cased text with
// accents removed. Recovery is checked before installation so that
// "desinstalacion" style wording is never read as a new installation.
var TypeRules = []Rule{
	rule(`\b(retir\w*|recuper\w*|baja|desinstal\w*|recover\w*|pickup|removal)\b`, model.OrderTypeRecovery),
	rule(`\b(averi\w*|fall[ao]s?|repar\w*|sin (servicio|senal|internet)|no funciona|corte|fault\w*|repair\w*|outage)\b`, model.OrderTypeRepair),
	rule(`\b(instal\w*|alta|nueva conexion|conexion nueva|install\w*|new (connection|service))\b`, model.OrderTypeInstallation),
}

// StatusRules classifies order statuses, same conventions as TypeRules.
var StatusRules = []Rule{
	rule(`\b(cancel\w*|anulad[ao])\b`, model.OrderStatusCancelled),
	rule(`\b(complet\w*|finalizad[ao]|terminad[ao]|cerrad[ao]|realizad[ao]|done|closed)\b`, model.OrderStatusCompleted),
	rule(`\b(hard|dificil|escalad[ao]|bloquead[ao]|blocked)\b`, model.OrderStatusHard),
	rule(`\b(visita|visit)\b`, model.OrderStatusVisit),
	rule(`\b(en (curso|progreso|proceso)|in.progress|iniciad[ao]|started)\b`, model.OrderStatusInProgress),
	rule(`\b(asignad[ao]|assigned)\b`, model.OrderStatusAssigned),
	rule(`\b(pendiente|pending|nuev[ao])\b`, model.OrderStatusPending),
}

// Classify returns the order type described by the given texts, or "other".
func Classify(texts ...string) string {
	return classify(TypeRules, model.ValidOrderType, model.OrderTypeOther, texts)
}

// ClassifyStatus returns the order status described by the given texts, or
// "pending".
func ClassifyStatus(texts ...string) string {
	return classify(StatusRules, model.ValidOrderStatus, model.OrderStatusPending, texts)
}

func classify(rules []Rule, canonical func(string) bool, fallback string, texts []string) string {
	folded := make([]string, 0, len(texts))
	for _, t := range texts {
		f := fold(t)
		if f == "" {
			continue
		}
		if canonical(f) {
			return f
		}
		folded = append(folded, f)
	}
	joined := strings.Join(folded, " ")
	for _, r := range rules {
		if r.Pattern.MatchString(joined) {
			return r.Value
		}
	}
	return fallback
}

// fold lower-cases s and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
