package parser

import (
	"testing"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFilename_SelectsByExtension(t *testing.T) {
	tests := []struct {
		filename string
		fileType domain.FileType
	}{
		{"extrato.ofx", domain.FileTypeOFX},
		{"extrato.QFX", domain.FileTypeOFX},
		{"movimentos.csv", domain.FileTypeCSV},
		{"Extrato-Janeiro.CSV", domain.FileTypeCSV},
		{"extrato.pdf", domain.FileTypePDF},
	}

	for _, tc := range tests {
		p, fileType, err := ForFilename(tc.filename)
		require.NoError(t, err, tc.filename)
		assert.NotNil(t, p, tc.filename)
		assert.Equal(t, tc.fileType, fileType, tc.filename)
	}
}

func TestForFilename_UnsupportedExtension(t *testing.T) {
	for _, filename := range []string{"extrato.xlsx", "extrato.txt", "extrato"} {
		p, _, err := ForFilename(filename)
		assert.Nil(t, p, filename)
		require.Error(t, err, filename)
		assert.True(t, domain.IsBusinessRule(err), filename)
	}
}
