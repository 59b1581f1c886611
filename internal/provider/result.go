package provider

import (
	"encoding/json"
	"strings"
	"time"
)

// Location is where a tender is being run.
type Location struct {
	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`
}

// Tender is the normalized search result shared by every source. Adapters
// produce it and never touch it again; the dispatcher only attaches
// RelevanceScore and RetrievedAt.
type Tender struct {
	ID             string          `json:"id"`
	Source         string          `json:"source"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Agency         string          `json:"agency,omitempty"`
	AgencyCNPJ     string          `json:"agency_cnpj,omitempty"`
	Modality       string          `json:"modality,omitempty"`
	EstimatedValue float64         `json:"estimated_value,omitempty"`
	Publication    *time.Time      `json:"publication_date,omitempty"`
	Deadline       *time.Time      `json:"submission_deadline,omitempty"`
	Opening        *time.Time      `json:"opening_date,omitempty"`
	Status         string          `json:"status,omitempty"`
	Location       Location        `json:"location,omitempty"`
	ProcessNumber  string          `json:"process_number,omitempty"`
	EditalNumber   string          `json:"edital_number,omitempty"`
	Category       string          `json:"category,omitempty"`
	URL            string          `json:"url,omitempty"`
	Raw            json.RawMessage `json:"raw_data,omitempty"`

	// Attached by the dispatcher after aggregation.
	RelevanceScore float64   `json:"relevance_score"`
	RetrievedAt    time.Time `json:"retrieved_at,omitempty"`
}

// Company is normalized CNPJ registration data.
type Company struct {
	CNPJ        string            `json:"cnpj"`
	Name        string            `json:"name"`
	TradeName   string            `json:"trade_name,omitempty"`
	Status      string            `json:"status,omitempty"`
	OpenedAt    string            `json:"opened_at,omitempty"`
	LegalNature string            `json:"legal_nature,omitempty"`
	Address     CompanyAddress    `json:"address"`
	Activities  []CompanyActivity `json:"activities,omitempty"`
	Raw         json.RawMessage   `json:"raw_data,omitempty"`
}

// CompanyAddress is a company's registered address.
type CompanyAddress struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
}

// CompanyActivity is one CNAE economic activity.
type CompanyActivity struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Primary     bool   `json:"primary"`
}

// Transfer is a normalized federal transfer or agreement record.
type Transfer struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Kind            string          `json:"kind"` // "transfer" or "agreement"
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Ministry        string          `json:"ministry,omitempty"`
	Program         string          `json:"program,omitempty"`
	Beneficiary     string          `json:"beneficiary,omitempty"`
	BeneficiaryCNPJ string          `json:"beneficiary_cnpj,omitempty"`
	State           string          `json:"state,omitempty"`
	City            string          `json:"city,omitempty"`
	Value           float64         `json:"value,omitempty"`
	Year            int             `json:"year,omitempty"`
	SituationRaw    string          `json:"situation,omitempty"`
	Raw             json.RawMessage `json:"raw_data,omitempty"`
}

// Agency is a contracting government agency.
type Agency struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym,omitempty"`
	CNPJ    string `json:"cnpj,omitempty"`
	Sphere  string `json:"sphere,omitempty"` // federal, state, municipal
}

// Modality is a contracting modality (Pregão, Concorrência, ...).
type Modality struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Municipality is an IBGE municipality entry.
type Municipality struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// NormalizeStatus maps the status spellings the sources emit onto the
// canonical set open/closed/cancelled/suspended. Unrecognized values pass
// through lowercased so nothing is silently dropped.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "":
		return ""
	case "aberto", "aberta", "publicado", "publicada", "recebendo proposta", "em andamento", "open":
		return "open"
	case "encerrado", "encerrada", "homologado", "homologada", "concluido", "concluído", "closed":
		return "closed"
	case "cancelado", "cancelada", "revogado", "revogada", "anulado", "anulada", "cancelled":
		return "cancelled"
	case "suspenso", "suspensa", "suspended":
		return "suspended"
	default:
		return s
	}
}
