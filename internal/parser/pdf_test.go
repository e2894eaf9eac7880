package parser

import (
	"testing"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLayout_CreditIndicator(t *testing.T) {
	lines := []string{
		"Extrato de Conta Corrente",
		"15/01/2024 TED RECEBIDA EMPRESA ABC 1.234,56 C",
	}

	txs := parseStandardLayout(lines)
	require.Len(t, txs, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, "TED RECEBIDA EMPRESA ABC", txs[0].Description)
	assert.Equal(t, "1234.56", txs[0].Amount.String())
	assert.Equal(t, domain.MovementTypeCredit, txs[0].Type)
}

func TestStandardLayout_LeadingMinusIsDebit(t *testing.T) {
	txs := parseStandardLayout([]string{"15/01/2024 PAGAMENTO BOLETO -1.234,56"})
	require.Len(t, txs, 1)
	assert.Equal(t, "1234.56", txs[0].Amount.String())
	assert.Equal(t, domain.MovementTypeDebit, txs[0].Type)
}

func TestStandardLayout_DebitIndicatorAndDefault(t *testing.T) {
	txs := parseStandardLayout([]string{
		"16/01/24 COMPRA CARTAO R$ 89,90 D",
		"17/01/2024 TARIFA MENSAL 25,00",
	})
	require.Len(t, txs, 2)
	assert.Equal(t, domain.MovementTypeDebit, txs[0].Type)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, domain.MovementTypeDebit, txs[1].Type)
}

func TestStandardLayout_IgnoresNonTransactionLines(t *testing.T) {
	txs := parseStandardLayout([]string{
		"Banco Exemplo S.A.",
		"Periodo: Janeiro 2024",
		"",
		"Saldo anterior 1.000,00",
	})
	assert.Empty(t, txs)
}

func TestNarrativeLayout_DateHeaderAppliesToFollowingLines(t *testing.T) {
	lines := []string{
		"6 de Fevereiro de 2026 Saldo do dia: R$ 73,24",
		"Pix recebido: Empresa ABC R$ 73,24 R$ 73,24",
		"Pagamento efetuado: Conta de luz -R$ 50,00 R$ 23,24",
	}

	txs := parseNarrativeLayout(lines)
	require.Len(t, txs, 2)

	expected := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, expected, txs[0].Date)
	assert.Equal(t, expected, txs[1].Date)
	assert.Equal(t, domain.MovementTypeCredit, txs[0].Type)
	assert.Equal(t, domain.MovementTypeDebit, txs[1].Type)
	assert.Equal(t, "73.24", txs[0].Amount.String())
	assert.Equal(t, "50", txs[1].Amount.String())
}

func TestNarrativeLayout_AbbreviatedMonth(t *testing.T) {
	lines := []string{
		"10 de fev de 2026 Saldo do dia: R$ 10,00",
		"Pix recebido: Cliente XYZ R$ 10,00 R$ 20,00",
	}

	txs := parseNarrativeLayout(lines)
	require.Len(t, txs, 1)
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), txs[0].Date)
}

func TestNarrativeLayout_SkipsBalanceLinesAndHeaderlessLines(t *testing.T) {
	lines := []string{
		"Pix recebido: antes de qualquer data R$ 10,00 R$ 10,00",
		"6 de Março de 2026 Saldo do dia: R$ 100,00",
		"Saldo bloqueado R$ 5,00 R$ 100,00",
		"Compra no debito: Mercado -R$ 30,00 R$ 70,00",
	}

	txs := parseNarrativeLayout(lines)
	require.Len(t, txs, 1)
	assert.Equal(t, "Compra no debito: Mercado", txs[0].Description)
}

func TestDetectBankName(t *testing.T) {
	lines := []string{
		"Extrato gerado em 01/02/2026",
		"Instituição: Banco Inter,",
	}
	assert.Equal(t, "Banco Inter", detectBankName(lines))

	assert.Equal(t, "", detectBankName([]string{"nothing to see"}))
}

func TestPDFParser_RejectsUnreadableBytes(t *testing.T) {
	_, err := NewPDFParser().Parse([]byte("definitely not a pdf"), "extrato.pdf")
	require.Error(t, err)
	assert.True(t, domain.IsBusinessRule(err))
	assert.Contains(t, err.Error(), "OFX or CSV")
}
