package conversation

import (
	"strings"
	"unicode"

	whatsapp "github.com/smileclinic/whatsbot/pkg/clients/whatsapp"
)

const serviceIDPrefix = "service_"

type service struct {
	name     string
	keys     []string
	advanced bool
}

// Table order decides ties between services whose keywords both match.
var catalog = []service{
	{name: "فحص عام", keys: []string{"فحص", "checkup", "check up", "consultation", "كشف"}},
	{name: "تنظيف الأسنان", keys: []string{"تنظيف", "clean"}},
	{name: "تبييض الأسنان", keys: []string{"تبييض", "whitening"}},
	{name: "حشو الأسنان", keys: []string{"حشو", "حشوة", "filling"}},
	{name: "علاج الجذور", keys: []string{"جذور", "عصب", "root canal"}, advanced: true},
	{name: "التركيبات", keys: []string{"تركيب", "crown", "bridge"}, advanced: true},
	{name: "تقويم الأسنان", keys: []string{"تقويم", "braces"}, advanced: true},
	{name: "خلع الأسنان", keys: []string{"خلع", "extraction"}, advanced: true},
	{name: "زراعة الأسنان", keys: []string{"زراعة", "implant"}, advanced: true},
	{name: "ابتسامة هوليود", keys: []string{"ابتسامة", "هوليود", "hollywood", "smile"}, advanced: true},
}

// DetectService resolves free text to a canonical service name.
func DetectService(text string) (string, bool) {
	normalized := normalizeServiceText(text)
	if normalized == "" {
		return "", false
	}
	compact := strings.ReplaceAll(normalized, " ", "")

	for _, svc := range catalog {
		for _, key := range svc.keys {
			if strings.Contains(normalized, key) {
				return svc.name, true
			}
		}
		if strings.Contains(compact, strings.ReplaceAll(svc.name, " ", "")) {
			return svc.name, true
		}
	}
	return "", false
}

func normalizeServiceText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 0x0600 && r <= 0x06FF, r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// serviceFromReply extracts the service carried by a list reply id.
func serviceFromReply(id string) (string, bool) {
	if !strings.HasPrefix(id, serviceIDPrefix) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(id, serviceIDPrefix))
	return name, name != ""
}

func serviceSections() []whatsapp.ListSection {
	basic := whatsapp.ListSection{Title: "الخدمات الأساسية"}
	advanced := whatsapp.ListSection{Title: "الخدمات المتقدمة"}
	for _, svc := range catalog {
		row := whatsapp.ListRow{ID: serviceIDPrefix + svc.name, Title: svc.name}
		if svc.advanced {
			advanced.Rows = append(advanced.Rows, row)
		} else {
			basic.Rows = append(basic.Rows, row)
		}
	}
	return []whatsapp.ListSection{basic, advanced}
}
