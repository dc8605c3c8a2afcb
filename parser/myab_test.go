package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/parser"
)

const myabCSV = "日期,交易類型,支出科目,收入科目,從科目,到科目,金額,明細,發票號碼\n" +
	"2026/01/15,支出,餐飲費,,,,\"1,250.00\",午餐聚餐,AB12345678\n" +
	"2026/01/16,收入,,薪資,,,50000.00,一月薪資,\n" +
	"2026/01/17,轉帳,,,Cash,Bank,1000.00,轉入銀行,\n" +
	"bad row with too few columns\n"

func TestMYABParserRegisteredByImportType(t *testing.T) {
	p, err := parser.Lookup(domain.ImportMYABCSV, "")
	require.NoError(t, err)
	assert.Empty(t, p.BankCode())
}

func TestMYABParserParsesAllThreeRowTypes(t *testing.T) {
	p, err := parser.Lookup(domain.ImportMYABCSV, "")
	require.NoError(t, err)

	rows, errs, err := p.Parse([]byte(myabCSV))
	require.NoError(t, err)
	require.Len(t, errs, 1, "the malformed trailing row should be reported, not abort the file")
	require.Len(t, rows, 3)

	assert.Equal(t, domain.SystemAccountCash, rows[0].FromAccountName)
	assert.Equal(t, "餐飲費", rows[0].ToAccountName)
	assert.True(t, rows[0].Amount.String() == "1250.00", "amounts with thousands separators must parse")

	assert.Equal(t, "薪資", rows[1].FromAccountName)
	assert.Equal(t, domain.SystemAccountCash, rows[1].ToAccountName)

	assert.Equal(t, "Cash", rows[2].FromAccountName)
	assert.Equal(t, "Bank", rows[2].ToAccountName)
}

func TestMYABParserHasNoBillingPeriod(t *testing.T) {
	p, err := parser.Lookup(domain.ImportMYABCSV, "")
	require.NoError(t, err)
	period, err := p.DetectBillingPeriod([]byte(myabCSV))
	require.NoError(t, err)
	assert.Nil(t, period)
}
