package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"aberto", "open"},
		{"Publicada", "open"},
		{"Recebendo Proposta", "open"},
		{"encerrada", "closed"},
		{"Homologado", "closed"},
		{"REVOGADA", "cancelled"},
		{"suspenso", "suspended"},
		{"", ""},
		{"em disputa", "em disputa"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.raw), "raw %q", tt.raw)
	}
}
