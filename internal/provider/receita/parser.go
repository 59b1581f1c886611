package receita

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/cotai/tendersearch/internal/provider"
)

// The mirrors disagree on almost every field name and sometimes on field
// types (municipio is a string on ReceitaWS and an object on cnpj.ws), so
// the payload is decoded loosely and normalized per dialect.
type cnpjPayload struct {
	CNPJ string `json:"cnpj"`

	// ReceitaWS dialect.
	Nome                  string     `json:"nome"`
	Fantasia              string     `json:"fantasia"`
	Status                string     `json:"status"`
	Situacao              string     `json:"situacao"`
	Abertura              string     `json:"abertura"`
	AtividadePrincipal    []cnaePair `json:"atividade_principal"`
	AtividadesSecundarias []cnaePair `json:"atividades_secundarias"`

	// BrasilAPI / cnpj.ws dialect.
	RazaoSocial       string          `json:"razao_social"`
	NomeFantasia      string          `json:"nome_fantasia"`
	SituacaoCadastral json.RawMessage `json:"situacao_cadastral"`
	DescricaoSituacao string          `json:"descricao_situacao_cadastral"`
	DataInicio        string          `json:"data_inicio_atividade"`
	CnaePrincipal     *cnaeFiscal     `json:"cnae_fiscal_principal"`
	CnaeSecundaria    []cnaeFiscal    `json:"cnae_fiscal_secundaria"`

	// Shared, modulo types.
	NaturezaJuridica json.RawMessage `json:"natureza_juridica"`
	Logradouro       string          `json:"logradouro"`
	Numero           string          `json:"numero"`
	Complemento      string          `json:"complemento"`
	Bairro           string          `json:"bairro"`
	Municipio        json.RawMessage `json:"municipio"`
	UF               string          `json:"uf"`
	CEP              string          `json:"cep"`
}

type cnaePair struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type cnaeFiscal struct {
	Codigo    json.Number `json:"codigo"`
	Descricao string      `json:"descricao"`
}

// normalizeCompany maps whichever dialect the mirror speaks onto the shared
// Company shape.
func normalizeCompany(body []byte) (*provider.Company, error) {
	var payload cnpjPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "receita: decode cnpj payload")
	}

	company := &provider.Company{
		CNPJ: CleanCNPJ(payload.CNPJ),
		Address: provider.CompanyAddress{
			Street:       payload.Logradouro,
			Number:       payload.Numero,
			Complement:   payload.Complemento,
			Neighborhood: payload.Bairro,
			City:         flexString(payload.Municipio),
			State:        payload.UF,
			ZipCode:      payload.CEP,
		},
		LegalNature: flexString(payload.NaturezaJuridica),
		Raw:         json.RawMessage(body),
	}

	switch {
	case payload.Nome != "":
		company.Name = payload.Nome
		company.TradeName = payload.Fantasia
		company.Status = firstNonEmpty(payload.Situacao, payload.Status)
		company.OpenedAt = payload.Abertura
		for _, a := range payload.AtividadePrincipal {
			company.Activities = append(company.Activities, provider.CompanyActivity{
				Code: a.Code, Description: a.Text, Primary: true,
			})
		}
		for _, a := range payload.AtividadesSecundarias {
			company.Activities = append(company.Activities, provider.CompanyActivity{
				Code: a.Code, Description: a.Text,
			})
		}

	case payload.RazaoSocial != "":
		company.Name = payload.RazaoSocial
		company.TradeName = payload.NomeFantasia
		company.Status = payload.DescricaoSituacao
		if company.Status == "" && activeCadastral(payload.SituacaoCadastral) {
			company.Status = "ativa"
		}
		company.OpenedAt = payload.DataInicio
		if payload.CnaePrincipal != nil {
			company.Activities = append(company.Activities, provider.CompanyActivity{
				Code:        payload.CnaePrincipal.Codigo.String(),
				Description: payload.CnaePrincipal.Descricao,
				Primary:     true,
			})
		}
		for _, a := range payload.CnaeSecundaria {
			company.Activities = append(company.Activities, provider.CompanyActivity{
				Code: a.Codigo.String(), Description: a.Descricao,
			})
		}

	default:
		return nil, eris.New("receita: payload has no recognizable company fields")
	}

	return company, nil
}

// flexString decodes a field the mirrors encode as either a bare string or
// an object with a descricao key.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Descricao string `json:"descricao"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Descricao
	}
	return ""
}

// activeCadastral reports whether situacao_cadastral means active. The
// registry code for active is 2, serialized as "02", "2", or the number 2
// depending on the mirror.
func activeCadastral(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(s)
		return err == nil && n == 2
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n == 2
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
