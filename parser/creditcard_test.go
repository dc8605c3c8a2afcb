package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/parser"
)

func TestCreditCardParserUnknownBankCodeFails(t *testing.T) {
	_, err := parser.Lookup(domain.ImportCreditCardCSV, "NOSUCHBANK")
	require.Error(t, err)
}

func TestCreditCardParserCTBCFixedHeader(t *testing.T) {
	p, err := parser.Lookup(domain.ImportCreditCardCSV, "CTBC")
	require.NoError(t, err)
	assert.Equal(t, "中國信託", p.BankName())

	content := "交易日,說明,金額\n" +
		"2026-01-05,全聯福利中心,850.00\n" +
		"2026-01-06,星巴克,165.00\n"

	rows, errs, err := p.Parse([]byte(content))
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, "全聯福利中心", rows[0].ToAccountName)
	assert.Equal(t, "L-中國信託 Credit Card", rows[0].FromAccountName)
}

func TestCreditCardParserCathayHeaderMarkerAndCrossYearCorrection(t *testing.T) {
	p, err := parser.Lookup(domain.ImportCreditCardCSV, "CATHAY")
	require.NoError(t, err)

	content := "2026/01信用卡對帳單\n" +
		"消費日,交易說明,新臺幣金額\n" +
		"12/20,年終採購,3000.00\n" + // prior December, before the 2026/01 bill month
		"01/03,年初消費,500.00\n" +
		"01/10,刷退款項,-200.00\n" // negative payment row, skipped

	rows, errs, err := p.Parse([]byte(content))
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 2, "the negative payment row should be skipped, not reported as an error")
	assert.Equal(t, 2025, rows[0].Date.Year(), "a December row on a January bill belongs to the prior year")
	assert.Equal(t, 2026, rows[1].Date.Year())
}

func TestCreditCardParserBillingPeriodForFixedHeaderBankIsNil(t *testing.T) {
	p, err := parser.Lookup(domain.ImportCreditCardCSV, "FUBON")
	require.NoError(t, err)
	period, err := p.DetectBillingPeriod([]byte("irrelevant"))
	require.NoError(t, err)
	assert.Nil(t, period)
}
