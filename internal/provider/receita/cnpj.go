package receita

import "strings"

// CleanCNPJ strips everything but digits.
func CleanCNPJ(s string) string {
	var b strings.Builder
	b.Grow(14)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidCNPJ checks a cleaned CNPJ: 14 digits, not a repeated digit, both
// check digits correct.
func ValidCNPJ(cnpj string) bool {
	if len(cnpj) != 14 {
		return false
	}
	if strings.Count(cnpj, cnpj[:1]) == 14 {
		return false
	}
	for _, r := range cnpj {
		if r < '0' || r > '9' {
			return false
		}
	}
	d1 := checkDigit(cnpj[:12], cnpjWeights1)
	d2 := checkDigit(cnpj[:13], cnpjWeights2)
	return int(cnpj[12]-'0') == d1 && int(cnpj[13]-'0') == d2
}

func checkDigit(partial string, weights []int) int {
	total := 0
	for i, w := range weights {
		total += int(partial[i]-'0') * w
	}
	if r := total % 11; r >= 2 {
		return 11 - r
	}
	return 0
}
