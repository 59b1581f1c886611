package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Licitação", "licitacao"},
		{"CONSTRUÇÃO", "construcao"},
		{"Vigilância Eletrônica", "vigilancia eletronica"},
		{"ponte", "ponte"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		title string
		want  string
	}{
		{"Aquisição de software de gestão", Technology},
		{"Contratação de obra de pavimentação", Construction},
		{"Serviço de limpeza predial", Services},
		{"Compra de veículos oficiais", Equipment},
		{"Fornecimento de combustível", Supplies},
		{"Concessão de uso de espaço público", Other},
		// Accented title must hit an unaccented keyword and vice versa.
		{"MANUTENÇÃO DE ELEVADORES", Services},
		{"aquisicao de equipamento hospitalar", Equipment},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.title), "Classify(%q)", tt.title)
	}
}

func TestLoadClassifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	catalog := `categories:
  - category: "Saúde"
    keywords: ["hospitalar", "medicação"]
  - category: "Outros custeios"
    keywords: ["diversos"]
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	c, err := LoadClassifier(path)
	require.NoError(t, err)

	assert.Equal(t, "Saúde", c.Classify("Aquisição de medicacao controlada"))
	assert.Equal(t, Other, c.Classify("Compra de mobiliário"))
}

func TestLoadClassifier_Errors(t *testing.T) {
	_, err := LoadClassifier("does-not-exist.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: []"), 0o644))
	_, err = LoadClassifier(path)
	assert.Error(t, err)
}
