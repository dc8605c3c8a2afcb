package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/parser"
)

func TestBankRecordParserExtractsLinesFromPlainText(t *testing.T) {
	p, err := parser.Lookup(domain.ImportBankRecord, "CTBC")
	require.NoError(t, err)
	assert.Equal(t, "身分證末4碼 + 生日MMDD（例：12340520）", p.PasswordHint())

	text := "本期帳單摘要\n" +
		"01/05 全聯福利中心 850.00\n" +
		"01/08 星巴克 165.00\n" +
		"一些不符合格式的雜訊行\n"

	rows, errs, err := p.Parse([]byte(text))
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, "全聯福利中心", rows[0].Description)
	assert.True(t, rows[0].Amount.String() == "850.00")
}

func TestGmailCCParserEmailQueryIsBankSpecific(t *testing.T) {
	p, err := parser.Lookup(domain.ImportGmailCC, "CTBC")
	require.NoError(t, err)
	assert.Contains(t, p.EmailQuery(), "ctbcbank.com")

	other, err := parser.Lookup(domain.ImportGmailCC, "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, other.EmailQuery())
}
