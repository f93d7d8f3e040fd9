// Package tags builds the hashtag block appended to normalized posting
// descriptions. Matching is case-insensitive against curated keyword sets:
// domain-relevance words, Brazilian state names and common technology tags.
package tags

import (
	"sort"
	"strings"
	"unicode"
)

// RelevanceKeywords is the minimum-relevance vocabulary. It also drives the
// mailbox search query and the scraped-source relevance predicate. Quoted
// entries are multi-word phrases.
var RelevanceKeywords = []string{
	"desenvolvedor", "desenvolvimento", "programador", "developer", "analista", "php", "arquiteto", "suporte",
	"devops", "dev-ops", "teste", `"banco de dados"`, `"segurança da informação"`, "design", "front-end",
	"frontend", "back-end", "backend", "scrum", "tecnologia", `"gerente de projetos"`, `"analista de dados"`,
	`"administrador de dados"`, "infra", "software", "oportunidade", "hardware", "java", "javascript", "python",
	"informática", "designer", "react", "vue", "wordpress", "sistemas", "full-stack", `"full stack"`, "fullstack",
	"computação", `"gerente de negócios"`, "tecnologias", "iot", `"machine learning"`, `"big data"`,
	`"gerenciamento de projetos"`, `"gerenciamento de negócios"`,
}

// StateNames covers Brazilian states plus a couple of capital cities.
var StateNames = []string{
	"Acre", "Alagoas", "Amapá", "Amazonas", "Bahia", "Ceará", `"Distrito Federal"`, `"Espírito Santo"`,
	"Goiás", "Maranhão", `"Mato Grosso"`, `"Mato Grosso do Sul"`, `"Minas Gerais"`, "Pará", "Paraíba",
	"Paraná", "Pernambuco", "Piauí", `"Rio de Janeiro"`, `"Rio Grande do Norte"`, `"Rio Grande do Sul"`,
	"Rondônia", "Roraima", `"Santa Catarina"`, `"São Paulo"`, "Sergipe", "Tocantins",
	"Brasília", `"Belo Horizonte"`,
}

// CommonTags is the technology and contract-type vocabulary.
var CommonTags = []string{
	"remote", "remoto", "júnior", "junior", "pleno", "senior", "sênior", "pj", "clt", "laravel", "symfony",
	"e-commerce", "ecommerce", "mysql", "js", "graphql", "ui/ux", "css", "html", "photoshop", `"design thinking"`,
	"node", "docker", "kubernets", "angular", "react", "android", "ios", `"teste unitário"`, "swift",
	`"objective-c"`, "linux", "postgresql", "dba", "bootstrap", "webpack", "microservices", "selenium", "scrum",
	"redes", "tomcat", "hibernate", "spring", "git", "oracle", "ionic", "ux", "geoprocessamento", "postgis",
	`"zend framework"`, "oraclesql", "kotlin", "devops", "tdd", "elixir", "clojure", "scala", `"start-up"`,
	"startup", "fintech", "alocado", "presencial", `"continuous integration"`, `"continuous deployment"`, "ruby",
	"nativescript", "sass",
}

var allKeywords = buildKeywordList()

func buildKeywordList() []string {
	var out []string
	for _, set := range [][]string{RelevanceKeywords, StateNames, CommonTags} {
		for _, kw := range set {
			out = append(out, strings.Trim(kw, `"`))
		}
	}
	return out
}

type match struct {
	index int
	tag   string
}

// Extract scans title+body for keyword occurrences and returns the hashtag
// block, space-joined hashtags bounded by blank lines, or an empty string
// when nothing matches. Hashtags are lower-case with internal spaces and
// hyphens removed, deduplicated preserving first occurrence in text order.
func Extract(title, body string) string {
	text := strings.ToLower(title + " " + body)

	var matches []match
	for _, kw := range allKeywords {
		needle := strings.ToLower(kw)
		for _, idx := range occurrences(text, needle) {
			matches = append(matches, match{index: idx, tag: Hashtag(kw)})
		}
	}
	if len(matches) == 0 {
		return ""
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].index < matches[j].index })

	seen := make(map[string]struct{}, len(matches))
	ordered := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.tag]; ok {
			continue
		}
		seen[m.tag] = struct{}{}
		ordered = append(ordered, m.tag)
	}

	return "\n\n" + strings.Join(ordered, " ") + "\n\n"
}

// Matches reports whether the text contains at least one relevance keyword.
// Fetchers use it to filter listings before following detail links.
func Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range RelevanceKeywords {
		needle := strings.ToLower(strings.Trim(kw, `"`))
		if len(occurrences(lower, needle)) > 0 {
			return true
		}
	}
	return false
}

// Hashtag converts a keyword into its hashtag form: lower-cased with spaces
// and hyphens removed.
func Hashtag(kw string) string {
	kw = strings.Trim(kw, `"`)
	kw = strings.ToLower(kw)
	kw = strings.NewReplacer(" ", "", "-", "").Replace(kw)
	return "#" + kw
}

// occurrences returns the indexes of whole-word occurrences of needle in
// haystack. Both arguments must already be lower-case.
func occurrences(haystack, needle string) []int {
	if needle == "" {
		return nil
	}
	var out []int
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return out
		}
		abs := offset + i
		if wordBoundary(haystack, abs, abs+len(needle)) {
			out = append(out, abs)
		}
		offset = abs + len(needle)
	}
}

// wordBoundary checks that the match is not embedded inside a larger word.
func wordBoundary(s string, start, end int) bool {
	if start > 0 {
		r := lastRune(s[:start])
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
	}
	if end < len(s) {
		r := firstRune(s[end:])
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
