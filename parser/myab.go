package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/money"
)

func init() {
	Register(domain.ImportMYABCSV, func(bankCode string) (Parser, error) {
		return myabParser{}, nil
	})
}

// myabHeader is spec.md §6's wire format for the MYAB CSV: date,
// transaction type, expense category, income category, source
// account, destination account, amount, description, invoice number.
var myabHeader = []string{"日期", "交易類型", "支出科目", "收入科目", "從科目", "到科目", "金額", "明細", "發票號碼"}

const (
	myabTypeExpense  = "支出"
	myabTypeIncome   = "收入"
	myabTypeTransfer = "轉帳"
)

var myabDateLayouts = []string{"2006/01/02", "2006-01-02", "01/02/2006"}

// myabParser reads the MYAB_CSV wire format. It carries no bank
// identity, so BankCode/BankName/EmailQuery/PasswordHint are empty and
// DetectBillingPeriod never applies (MYAB exports have no bill header).
type myabParser struct{}

func (myabParser) BankCode() string     { return "" }
func (myabParser) BankName() string     { return "" }
func (myabParser) EmailQuery() string   { return "" }
func (myabParser) PasswordHint() string { return "" }

func (myabParser) DetectBillingPeriod(content []byte) (*BillingPeriod, error) {
	return nil, nil
}

func (myabParser) Parse(content []byte) ([]ParsedTransaction, []ValidationError, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, fmt.Errorf("parser: myab csv: empty file")
		}
		return nil, nil, fmt.Errorf("parser: myab csv: read header: %w", err)
	}
	if len(header) < len(myabHeader) {
		return nil, nil, fmt.Errorf("parser: myab csv: expected %d columns, header has %d", len(myabHeader), len(header))
	}

	var rows []ParsedTransaction
	var errs []ValidationError
	rowNum := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			errs = append(errs, ValidationError{RowNumber: rowNum, Message: err.Error()})
			continue
		}
		if len(record) < len(myabHeader) {
			errs = append(errs, ValidationError{RowNumber: rowNum, Message: "row has fewer columns than the MYAB header"})
			continue
		}
		row, err := parseMYABRow(rowNum, record)
		if err != nil {
			errs = append(errs, ValidationError{RowNumber: rowNum, Message: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

func parseMYABRow(rowNum int, record []string) (ParsedTransaction, error) {
	date, err := parseFlexibleDate(record[0], myabDateLayouts)
	if err != nil {
		return ParsedTransaction{}, fmt.Errorf("invalid date %q: %w", record[0], err)
	}
	txType := strings.TrimSpace(record[1])
	expenseCategory := strings.TrimSpace(record[2])
	incomeCategory := strings.TrimSpace(record[3])
	fromAccount := strings.TrimSpace(record[4])
	toAccount := strings.TrimSpace(record[5])
	amount, err := parseCommaAmount(record[6])
	if err != nil {
		return ParsedTransaction{}, fmt.Errorf("invalid amount %q: %w", record[6], err)
	}
	description := strings.TrimSpace(record[7])
	invoice := ""
	if len(record) > 8 {
		invoice = strings.TrimSpace(record[8])
	}

	from, to, err := myabAccountPair(txType, expenseCategory, incomeCategory, fromAccount, toAccount)
	if err != nil {
		return ParsedTransaction{}, err
	}
	suggestedType, err := myabTransactionType(txType)
	if err != nil {
		return ParsedTransaction{}, err
	}

	return ParsedTransaction{
		RowNumber: rowNum, Date: date, Description: description, Amount: amount,
		FromAccountName: from, ToAccountName: to, InvoiceNumber: invoice,
		SuggestedType: suggestedType,
	}, nil
}

// myabTransactionType maps MYAB's 交易類型 column onto the
// domain.TypeMatrix-checked TransactionType the import pipeline posts
// the row as.
func myabTransactionType(txType string) (domain.TransactionType, error) {
	switch txType {
	case myabTypeExpense:
		return domain.TxExpense, nil
	case myabTypeIncome:
		return domain.TxIncome, nil
	case myabTypeTransfer:
		return domain.TxTransfer, nil
	default:
		return "", fmt.Errorf("unrecognized 交易類型 %q", txType)
	}
}

// myabAccountPair resolves the posting pair from MYAB's type-dependent
// columns: an expense row posts Cash -> expense category, an income row
// posts income category -> Cash, and a transfer row uses the explicit
// source/destination account columns.
func myabAccountPair(txType, expenseCategory, incomeCategory, fromAccount, toAccount string) (from, to string, err error) {
	switch txType {
	case myabTypeExpense:
		if expenseCategory == "" {
			return "", "", fmt.Errorf("expense row missing 支出科目")
		}
		return domain.SystemAccountCash, expenseCategory, nil
	case myabTypeIncome:
		if incomeCategory == "" {
			return "", "", fmt.Errorf("income row missing 收入科目")
		}
		return incomeCategory, domain.SystemAccountCash, nil
	case myabTypeTransfer:
		if fromAccount == "" || toAccount == "" {
			return "", "", fmt.Errorf("transfer row missing 從科目/到科目")
		}
		return fromAccount, toAccount, nil
	default:
		return "", "", fmt.Errorf("unrecognized 交易類型 %q", txType)
	}
}

func parseFlexibleDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// parseCommaAmount strips thousands separators before handing the
// string to money.Parse, which otherwise rejects "1,200.00" outright.
func parseCommaAmount(s string) (money.Amount, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return money.Zero, fmt.Errorf("empty amount")
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return money.Zero, fmt.Errorf("not a number")
	}
	return money.Parse(cleaned)
}
