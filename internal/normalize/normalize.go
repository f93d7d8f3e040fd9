// Package normalize cleans raw posting content (mail HTML, scraped issue
// bodies) into the restricted markup dialect the channel renderer accepts:
// *bold*, _italic_, `heading`, • bullets.
//
// Every transform is total over strings: the worst case is returning the
// trimmed input.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// footerDelimiters mark the start of mailing-list boilerplate. Normalization
// truncates at the earliest occurrence, in text order.
var footerDelimiters = []string{
	"As informações contidas neste",
	"You are receiving this because you are subscribed to this thread",
	"Você recebeu esta mensagem porque está inscrito para o Google",
	"Você recebeu essa mensagem porque",
	"Você está recebendo esta mensagem porque",
	"Esta mensagem pode conter informa",
	"Você recebeu esta mensagem porque",
	"Antes de imprimir",
	"This message contains",
	"NVagas Conectando",
	"Atenciosamente",
	"Att.",
	"Att,",
	"AVISO DE CONFIDENCIALIDADE",
	"Receba vagas no whatsapp",
	"-- Linkedin: www.linkedin.com/company/clube-de-vagas/",
	"www.linkedin.com/company/clube-de-vagas/",
	"linkedin.com/company/clube-de-vagas/",
	"Cordialmente",
	"Tiago Romualdo Souza",
	"--",
}

var (
	tagAttrRe       = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)[^>]*?(/?)>`)
	emptyTagPairRe  = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)>\s*</([a-zA-Z][a-zA-Z0-9]*)>`)
	anyTagRe        = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	newlineRunRe    = regexp.MustCompile(`[\r\n]+`)
	spaceAroundNLRe = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	spaceRunRe      = regexp.MustCompile(`[ \t]{2,}`)
	cidImageRe      = regexp.MustCompile(`(?m)cid:image(.+)`)
	whatsappLinkRe  = regexp.MustCompile(`(?m)^.*chat\.whatsapp\.com/.+$`)
	titlePrefixRe   = regexp.MustCompile(`(?i)^(RE|FW|FWD|ENC|VAGA|Oportunidade)S?:\s*`)
	viewCounterRe   = regexp.MustCompile(`(?i)\d+\s*(view|application)s?`)
	parentheticalRe = regexp.MustCompile(`[(\[{][^\]]+[)\]}]`)
	hyphenRunRe     = regexp.MustCompile(`(-){2,}`)
)

// sourceTagPrefixes are mailing-list markers dropped from subjects.
var sourceTagPrefixes = []string{"[ClubInfoBSB]", "[leonardoti]", "[NVagas]", "[ProfissãoFuturo]"}

var structuralTags = strings.NewReplacer(
	"<strong>", "*", "</strong>", "*", "<b>", "*", "</b>", "*",
	"<i>", "_", "</i>", "_", "<em>", "_", "</em>", "_",
	"<h1>", "`", "</h1>", "`", "<h2>", "`", "</h2>", "`",
	"<h3>", "`", "</h3>", "`", "<h4>", "`", "</h4>", "`",
	"<h5>", "`", "</h5>", "`", "<h6>", "`", "</h6>", "`",
	"<ul>", "", "</ul>", "", "<ol>", "", "</ol>", "",
	"<li>", "•", "</li>", "\n",
	"<br>", "\n", "<br/>", "\n",
	"<p>", "\n", "</p>", "\n",
)

var emptyEmphasisPairs = strings.NewReplacer(
	"**", "", "__", "", "``", "",
	"* *", "", "_ _", "", "` `", "",
	"*  *", "", "_  _", "", "`  `", "",
)

// Normalize converts raw HTML or plain text into the channel markup dialect.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return strings.TrimSpace(raw)
	}

	s := truncateAtFooter(raw)
	s = stripTagAttributes(s)
	s = removeEmptyTags(s)
	s = balanceTags(s)

	s = StripMarkup(s)

	s = structuralTags.Replace(s)
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "<3", "❤️")

	s = emptyEmphasisPairs.Replace(s)
	s = newlineRunRe.ReplaceAllString(s, "\n")
	s = spaceAroundNLRe.ReplaceAllString(s, "\n")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " \t\n\r\x00\x0B-")

	s = cidImageRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "GrupoClubedeVagas", "phpdfvagas")
	s = whatsappLinkRe.ReplaceAllString(s, "http://bit.ly/phpdf-official")

	return strings.TrimSpace(s)
}

// SanitizeTitle applies the subject-line pass: reply/forward prefixes,
// view counters and source tags are dropped and the result is collapsed to a
// single line.
func SanitizeTitle(title string) string {
	s := title
	for {
		next := titlePrefixRe.ReplaceAllString(strings.TrimSpace(s), "")
		if next == s {
			break
		}
		s = next
	}
	s = viewCounterRe.ReplaceAllString(s, "")
	for _, tag := range sourceTagPrefixes {
		s = strings.ReplaceAll(s, tag, "")
	}
	s = strings.ReplaceAll(s, "\n", " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.Trim(s, " \t-")
}

// StripMarkup removes all emphasis control characters. It is the fallback
// applied when the destination rejects formatted text.
func StripMarkup(s string) string {
	s = strings.NewReplacer("*", "", "_", "", "`", "").Replace(s)
	return strings.Trim(s, "[]")
}

// EscapeMarkup backslash-escapes emphasis control characters so they render
// literally.
func EscapeMarkup(s string) string {
	s = strings.NewReplacer(
		"*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`,
	).Replace(s)
	return strings.TrimSpace(s)
}

// NeutralizeMarkup replaces emphasis control characters with spaces; used in
// plain list contexts such as digest rows.
func NeutralizeMarkup(s string) string {
	s = strings.NewReplacer("*", " ", "_", " ", "`", " ", "[", " ", "]", " ").Replace(s)
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripBrackets flattens bracket characters into simple hyphen separators.
func StripBrackets(s string) string {
	s = strings.Trim(s, "[]{}()")
	s = strings.NewReplacer("(", "--", ")", "--", "[", "--", "]", "--", "{", "--", "}", "--").Replace(s)
	s = hyphenRunRe.ReplaceAllString(s, " - ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripParenthetical removes the first bracketed or parenthesized run.
func StripParenthetical(s string) string {
	if loc := parentheticalRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	return strings.TrimSpace(s)
}

func truncateAtFooter(s string) string {
	cut := -1
	for _, d := range footerDelimiters {
		if i := strings.Index(s, d); i >= 0 && (cut == -1 || i < cut) {
			cut = i
		}
	}
	if cut >= 0 {
		return s[:cut]
	}
	return s
}

// stripTagAttributes reduces every tag to its bare name: <a href=...> → <a>.
func stripTagAttributes(s string) string {
	return tagAttrRe.ReplaceAllString(s, "<${1}${2}>")
}

// removeEmptyTags drops tag pairs whose content is only whitespace or other
// empty pairs, repeating until the text is stable.
func removeEmptyTags(s string) string {
	for {
		next := emptyTagPairRe.ReplaceAllStringFunc(s, func(m string) string {
			sub := emptyTagPairRe.FindStringSubmatch(m)
			if len(sub) == 3 && strings.EqualFold(sub[1], sub[2]) {
				return ""
			}
			return m
		})
		if next == s {
			return s
		}
		s = next
	}
}

// balanceTags parses the fragment into a document tree and re-serializes
// only the body subtree, closing unclosed tags and discarding anything
// outside the body. Malformed input falls back to the input unchanged.
func balanceTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	body, err := doc.Find("body").Html()
	if err != nil {
		return s
	}
	return strings.TrimSpace(body)
}
