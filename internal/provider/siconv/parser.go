package siconv

import (
	"encoding/json"
	"strconv"

	"github.com/cotai/tendersearch/internal/provider"
)

type namedRef struct {
	Codigo json.Number `json:"codigo"`
	Nome   string      `json:"nome"`
	CNPJ   string      `json:"cnpj"`
	UF     string      `json:"uf"`
}

type transferItem struct {
	ID           json.Number `json:"id"`
	Objeto       string      `json:"objeto"`
	Orgao        namedRef    `json:"orgao"`
	Programa     namedRef    `json:"programa"`
	Valor        float64     `json:"valor"`
	Ano          int         `json:"ano"`
	Beneficiario namedRef    `json:"beneficiario"`
	Municipio    namedRef    `json:"municipio"`
	Situacao     string      `json:"situacao"`

	raw []byte
}

func (t *transferItem) UnmarshalJSON(data []byte) error {
	type alias transferItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = transferItem(a)
	t.raw = append([]byte(nil), data...)
	return nil
}

func (t transferItem) toTransfer() provider.Transfer {
	title := "Transferência - Programa não informado"
	if t.Programa.Nome != "" {
		title = "Transferência - " + t.Programa.Nome
	}
	return provider.Transfer{
		ID:              t.ID.String(),
		Source:          Name,
		Kind:            "transfer",
		Title:           title,
		Description:     t.Objeto,
		Ministry:        t.Orgao.Nome,
		Program:         t.Programa.Nome,
		Beneficiary:     t.Beneficiario.Nome,
		BeneficiaryCNPJ: t.Beneficiario.CNPJ,
		State:           t.Municipio.UF,
		City:            t.Municipio.Nome,
		Value:           t.Valor,
		Year:            t.Ano,
		SituationRaw:    t.Situacao,
		Raw:             t.raw,
	}
}

type agreementItem struct {
	ID                 json.Number `json:"id"`
	Objeto             string      `json:"objeto"`
	OrgaoSuperior      namedRef    `json:"orgaoSuperior"`
	ValorConvenio      float64     `json:"valorConvenio"`
	ValorContrapartida float64     `json:"valorContrapartida"`
	DataInicioVigencia string      `json:"dataInicioVigencia"`
	Convenente         namedRef    `json:"convenente"`
	Municipio          namedRef    `json:"municipio"`
	SituacaoConvenio   string      `json:"situacaoConvenio"`

	raw []byte
}

func (a *agreementItem) UnmarshalJSON(data []byte) error {
	type alias agreementItem
	var aa alias
	if err := json.Unmarshal(data, &aa); err != nil {
		return err
	}
	*a = agreementItem(aa)
	a.raw = append([]byte(nil), data...)
	return nil
}

func (a agreementItem) toTransfer() provider.Transfer {
	title := "Convênio - Objeto não informado"
	if a.Objeto != "" {
		title = "Convênio - " + a.Objeto
	}
	return provider.Transfer{
		ID:              a.ID.String(),
		Source:          Name,
		Kind:            "agreement",
		Title:           title,
		Description:     a.Objeto,
		Ministry:        a.OrgaoSuperior.Nome,
		Beneficiary:     a.Convenente.Nome,
		BeneficiaryCNPJ: a.Convenente.CNPJ,
		State:           a.Municipio.UF,
		City:            a.Municipio.Nome,
		Value:           a.ValorConvenio,
		Year:            vigencyYear(a.DataInicioVigencia),
		SituationRaw:    a.SituacaoConvenio,
		Raw:             a.raw,
	}
}

// vigencyYear pulls the year out of a dd/mm/yyyy or yyyy-mm-dd date.
func vigencyYear(date string) int {
	if len(date) < 10 {
		return 0
	}
	field := date[:4]
	if date[2] == '/' {
		field = date[6:10]
	}
	year, err := strconv.Atoi(field)
	if err != nil {
		return 0
	}
	return year
}
