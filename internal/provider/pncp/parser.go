package pncp

import (
	"encoding/json"
	"time"

	"github.com/cotai/tendersearch/internal/category"
	"github.com/cotai/tendersearch/internal/provider"
)

type searchPayload struct {
	Data []tenderItem `json:"data"`
}

type agencyPayload struct {
	Data []agencyItem `json:"data"`
}

type agencyItem struct {
	ID     string `json:"id"`
	Name   string `json:"razaoSocial"`
	CNPJ   string `json:"cnpj"`
	Sphere string `json:"esferaId"`
}

type tenderItem struct {
	ID             string     `json:"id"`
	Object         string     `json:"objeto"`
	Extra          string     `json:"informacaoComplementar"`
	Agency         agencyInfo `json:"orgaoEntidade"`
	Modality       string     `json:"modalidade"`
	EstimatedValue float64    `json:"valorEstimado"`
	Publication    string     `json:"dataPublicacao"`
	Deadline       string     `json:"dataLimiteSubmissao"`
	Opening        string     `json:"dataAberturaPropostas"`
	Situation      string     `json:"situacao"`
	State          string     `json:"uf"`
	City           string     `json:"municipio"`
	ProcessNumber  string     `json:"numeroProcesso"`
	EditalNumber   string     `json:"numeroEdital"`
	raw            []byte
}

type agencyInfo struct {
	Name string `json:"razaoSocial"`
	CNPJ string `json:"cnpj"`
}

// UnmarshalJSON keeps the raw payload alongside the parsed fields so the
// normalized result can carry the source record untouched.
func (t *tenderItem) UnmarshalJSON(data []byte) error {
	type alias tenderItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = tenderItem(a)
	t.raw = append([]byte(nil), data...)
	return nil
}

func (t tenderItem) toTender(classifier *category.Classifier) provider.Tender {
	return provider.Tender{
		ID:             t.ID,
		Source:         Name,
		Title:          t.Object,
		Description:    t.Extra,
		Agency:         t.Agency.Name,
		AgencyCNPJ:     t.Agency.CNPJ,
		Modality:       t.Modality,
		EstimatedValue: t.EstimatedValue,
		Publication:    parseTime(t.Publication),
		Deadline:       parseTime(t.Deadline),
		Opening:        parseTime(t.Opening),
		Status:         provider.NormalizeStatus(t.Situation),
		Location:       provider.Location{State: t.State, City: t.City},
		ProcessNumber:  t.ProcessNumber,
		EditalNumber:   t.EditalNumber,
		Category:       classifier.Classify(t.Object),
		URL:            "https://pncp.gov.br/app/editais/" + t.ID,
		Raw:            t.raw,
	}
}

// parseTime handles the timestamp shapes PNCP emits: RFC 3339, the same
// without zone, and bare dates.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
