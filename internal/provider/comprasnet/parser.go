package comprasnet

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cotai/tendersearch/internal/category"
	"github.com/cotai/tendersearch/internal/provider"
)

// The result page is one <tr> per tender, classic ASP table soup. Rows are
// flattened to plaintext first, then labeled fields are pulled out by regex.
var (
	rowSplitRe = regexp.MustCompile(`(?i)<tr\b[^>]*>`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
	spaceRe    = regexp.MustCompile(`\s+`)

	agencyRe   = regexp.MustCompile(`^(.*?)\s*Código da UASG:\s*(\d+)`)
	headerRe   = regexp.MustCompile(`(Pregão Eletrônico|Pregão Presencial|Pregão|Concorrência|Tomada de Preços|Convite|Leilão|Concurso)\s+N[ºo°]?\s*([0-9][0-9./-]*)`)
	objectRe   = regexp.MustCompile(`Objeto:\s*(?:Objeto:\s*)?(.*?)\s*(?:Edital a partir de:|Endereço:|Telefone:|Fax:|Entrega da Proposta:|$)`)
	publishRe  = regexp.MustCompile(`Edital a partir de:\s*(\d{2}/\d{2}/\d{4})`)
	deadlineRe = regexp.MustCompile(`Entrega da Proposta:\s*(?:a partir de\s*)?(\d{2}/\d{2}/\d{4})`)
	addressRe  = regexp.MustCompile(`Endereço:.*?-\s+([^-()]+?)\s+\(([A-Z]{2})\)`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// flatten strips tags and entities from an HTML fragment and collapses
// whitespace into single spaces.
func flatten(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	text = entityReplacer.Replace(text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// parseSearchResults extracts tenders from the consultation result page.
// Rows that do not carry a recognizable modality header are skipped; a page
// with zero rows is a valid empty result, not an error.
func parseSearchResults(body []byte, baseURL string, classifier *category.Classifier) []provider.Tender {
	var tenders []provider.Tender
	for _, chunk := range rowSplitRe.Split(string(body), -1) {
		text := flatten(chunk)
		if text == "" {
			continue
		}
		if t, ok := rowToTender(text, baseURL, classifier); ok {
			tenders = append(tenders, t)
		}
	}
	return tenders
}

func rowToTender(text, baseURL string, classifier *category.Classifier) (provider.Tender, bool) {
	header := headerRe.FindStringSubmatch(text)
	if header == nil {
		return provider.Tender{}, false
	}
	modality, number := header[1], header[2]

	var agency, uasg string
	if m := agencyRe.FindStringSubmatch(text); m != nil {
		agency, uasg = strings.TrimSpace(m[1]), m[2]
	}
	if uasg == "" {
		// A header without a UASG is boilerplate (legend rows, help text).
		return provider.Tender{}, false
	}

	var description string
	if m := objectRe.FindStringSubmatch(text); m != nil {
		description = strings.TrimSpace(m[1])
	}

	t := provider.Tender{
		ID:          uasg + "-" + strings.ReplaceAll(number, "/", "-"),
		Source:      Name,
		Title:       modality + " Nº " + number,
		Description: description,
		Agency:      agency,
		Modality:    modality,
		Publication: parseDate(publishRe, text),
		Deadline:    parseDate(deadlineRe, text),
		Status:      "open",
		URL:         detailsURL(baseURL, uasg),
		Raw:         rawRow(text),
	}
	if m := addressRe.FindStringSubmatch(text); m != nil {
		t.Location.City = strings.TrimSpace(m[1])
		t.Location.State = m[2]
	}
	t.Category = classifier.Classify(t.Title + " " + t.Description)
	return t, true
}

// parseDetails reads the edital detail page for one UASG entry. The page
// shares the labeled-field layout of the result rows.
func parseDetails(body []byte, id, baseURL string, classifier *category.Classifier) (*provider.Tender, error) {
	text := flatten(string(body))

	header := headerRe.FindStringSubmatch(text)
	if header == nil {
		return nil, eris.Errorf("comprasnet: unrecognized details page for %s", id)
	}

	t := provider.Tender{
		ID:          id,
		Source:      Name,
		Title:       header[1] + " Nº " + header[2],
		Modality:    header[1],
		Publication: parseDate(publishRe, text),
		Deadline:    parseDate(deadlineRe, text),
		Status:      "open",
		URL:         detailsURL(baseURL, id),
		Raw:         rawRow(text),
	}
	if m := objectRe.FindStringSubmatch(text); m != nil {
		t.Description = strings.TrimSpace(m[1])
	}
	if m := agencyRe.FindStringSubmatch(text); m != nil {
		t.Agency = strings.TrimSpace(m[1])
	}
	if m := addressRe.FindStringSubmatch(text); m != nil {
		t.Location.City = strings.TrimSpace(m[1])
		t.Location.State = m[2]
	}
	t.Category = classifier.Classify(t.Title + " " + t.Description)
	return &t, nil
}

func parseDate(re *regexp.Regexp, text string) *time.Time {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	t, err := time.Parse("02/01/2006", m[1])
	if err != nil {
		return nil
	}
	return &t
}

// rawRow preserves the flattened row for downstream consumers, truncated so
// a pathological page cannot balloon the payload.
func rawRow(text string) json.RawMessage {
	const maxRaw = 500
	if len(text) > maxRaw {
		text = text[:maxRaw]
	}
	raw, err := json.Marshal(map[string]string{"row": text})
	if err != nil {
		return nil
	}
	return raw
}
