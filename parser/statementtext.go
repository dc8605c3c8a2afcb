/*
statementtext.go implements the GMAIL_CC and BANK_RECORD parsers,
which never see a CSV — they receive the plain text already extracted
from a decrypted PDF statement (PDF decryption/extraction itself is
out of scope per spec.md §1). Line matching and the MM/DD-without-year
date resolution are ported from
original_source/backend/src/services/bank_parsers/ctbc_parser.py's
_parse_text/_parse_date regex fallback, the path that teacher module
itself falls back to once table extraction finds nothing.
*/
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/parser/bankconfig"
)

func init() {
	Register(domain.ImportGmailCC, func(bankCode string) (Parser, error) {
		return statementTextParser{importType: domain.ImportGmailCC, bankCode: bankCode}, nil
	})
	Register(domain.ImportBankRecord, func(bankCode string) (Parser, error) {
		return statementTextParser{importType: domain.ImportBankRecord, bankCode: bankCode}, nil
	})
}

var statementLinePatterns = []*regexp.Regexp{
	// MM/DD  description  amount
	regexp.MustCompile(`(?m)^(\d{1,2}/\d{1,2})\s+(.+?)\s+([\d,]+(?:\.\d{2})?)\s*$`),
	// YYYY/MM/DD  description  amount
	regexp.MustCompile(`(?m)^(\d{4}/\d{1,2}/\d{1,2})\s+(.+?)\s+([\d,]+(?:\.\d{2})?)\s*$`),
}

var billingPeriodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`帳單週期[：:]\s*(\d{4}/\d{1,2}/\d{1,2})\s*[~至-]\s*(\d{4}/\d{1,2}/\d{1,2})`),
	regexp.MustCompile(`(\d{4}/\d{1,2}/\d{1,2})\s*[~至-]\s*(\d{4}/\d{1,2}/\d{1,2})`),
}

// statementTextParser extracts transaction lines from already-decrypted
// statement text using a per-bank merchant-account label, line
// patterns shared across banks (the content itself, not a CSV column
// layout, carries the structure here).
type statementTextParser struct {
	importType domain.ImportType
	bankCode   string
}

func (p statementTextParser) BankCode() string { return p.bankCode }

func (p statementTextParser) BankName() string {
	if cfg, ok := bankconfig.Lookup(p.bankCode); ok {
		return cfg.Name
	}
	return ""
}

func (p statementTextParser) EmailQuery() string {
	if p.importType != domain.ImportGmailCC {
		return ""
	}
	switch p.bankCode {
	case "CTBC":
		return "from:noreply@ctbcbank.com subject:信用卡電子帳單"
	case "FUBON":
		return "from:notice@fubon.com subject:信用卡電子對帳單"
	default:
		return ""
	}
}

func (p statementTextParser) PasswordHint() string {
	switch p.bankCode {
	case "CTBC":
		return "身分證末4碼 + 生日MMDD（例：12340520）"
	default:
		return ""
	}
}

func (p statementTextParser) DetectBillingPeriod(content []byte) (*BillingPeriod, error) {
	text := string(content)
	for _, re := range billingPeriodPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		start, err1 := parseStatementDate(m[1], 0)
		end, err2 := parseStatementDate(m[2], 0)
		if err1 == nil && err2 == nil {
			return &BillingPeriod{Start: start, End: end}, nil
		}
	}
	return nil, nil
}

func (p statementTextParser) Parse(content []byte) ([]ParsedTransaction, []ValidationError, error) {
	text := string(content)
	billYear := 0
	if period, _ := p.DetectBillingPeriod(content); period != nil {
		billYear = period.End.Year()
	}

	accountLabel := fmt.Sprintf("L-%s Credit Card", p.BankName())
	if accountLabel == "L- Credit Card" {
		accountLabel = fmt.Sprintf("L-%s Credit Card", strings.ToUpper(p.bankCode))
	}

	var rows []ParsedTransaction
	var errs []ValidationError
	for i, line := range strings.Split(text, "\n") {
		rowNum := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, re := range statementLinePatterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			date, err := parseStatementDate(m[1], billYear)
			if err != nil {
				errs = append(errs, ValidationError{RowNumber: rowNum, Message: err.Error()})
				break
			}
			amount, err := parseCommaAmount(m[3])
			if err != nil {
				errs = append(errs, ValidationError{RowNumber: rowNum, Message: err.Error()})
				break
			}
			description := strings.TrimSpace(m[2])
			if description == "" {
				break
			}
			rows = append(rows, ParsedTransaction{
				RowNumber: rowNum, Date: date, Description: description, Amount: amount,
				FromAccountName: accountLabel, ToAccountName: description,
				SuggestedType: domain.TxExpense,
			})
			break
		}
	}
	return rows, errs, nil
}

// parseStatementDate accepts MM/DD (falling back to fallbackYear, or
// the current year if unset) or a full YYYY/MM/DD date.
func parseStatementDate(s string, fallbackYear int) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006/01/02", s); err == nil {
		return t, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	year := fallbackYear
	if year == 0 {
		year = time.Now().Year()
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
