package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/parser/bankconfig"
)

func init() {
	Register(domain.ImportCreditCardCSV, func(bankCode string) (Parser, error) {
		cfg, ok := bankconfig.Lookup(bankCode)
		if !ok {
			return nil, fmt.Errorf("parser: unknown credit card bank code %q", bankCode)
		}
		return creditCardParser{cfg: cfg}, nil
	})
}

// creditCardParser reads one bank's credit-card CSV export using the
// column offsets, date format, encoding, and sign convention from
// parser/bankconfig, grounded on original_source's bank_configs.py and
// bank_parsers/ package. Every row is a LIABILITY -> EXPENSE posting
// (spec.md §4.G step 5: "credit-card rows are always LIABILITY ->
// EXPENSE"), so the card account itself stands in for FromAccountName
// and the merchant description stands in for ToAccountName — the
// import pipeline maps both through its normal account-mapping step.
type creditCardParser struct {
	cfg bankconfig.Config
}

func (p creditCardParser) BankCode() string     { return p.cfg.Code }
func (p creditCardParser) BankName() string     { return p.cfg.Name }
func (p creditCardParser) EmailQuery() string   { return "" }
func (p creditCardParser) PasswordHint() string { return "" }

func (p creditCardParser) DetectBillingPeriod(content []byte) (*BillingPeriod, error) {
	if p.cfg.YearMonthRegex == "" {
		return nil, nil
	}
	year, month, err := billHeaderYearMonth(content, p.cfg.YearMonthRegex)
	if err != nil {
		return nil, nil // no header found; not every statement carries one
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return &BillingPeriod{Start: start, End: end}, nil
}

func (p creditCardParser) Parse(content []byte) ([]ParsedTransaction, []ValidationError, error) {
	decoded, err := decodeBankCSV(content, p.cfg.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("parser: %s csv: decode: %w", p.cfg.Code, err)
	}

	billYear, billMonth := 0, 0
	if p.cfg.YearMonthRegex != "" {
		if y, m, err := billHeaderYearMonth(decoded, p.cfg.YearMonthRegex); err == nil {
			billYear, billMonth = y, m
		}
	}

	lines := strings.Split(strings.ReplaceAll(decoded, "\r\n", "\n"), "\n")
	startLine, err := locateDataStart(lines, p.cfg)
	if err != nil {
		return nil, nil, err
	}

	body := strings.Join(lines[startLine:], "\n")
	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1

	var rows []ParsedTransaction
	var errs []ValidationError
	rowNum := startLine // 0-based line index becomes the 1-based row number of the first data row
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
		if allBlank(record) {
			continue
		}
		row, err := p.parseRow(rowNum, record, billYear, billMonth)
		if err != nil {
			errs = append(errs, ValidationError{RowNumber: rowNum, Message: err.Error()})
			continue
		}
		if row == nil {
			continue // skipped negative/payment row
		}
		rows = append(rows, *row)
	}
	return rows, errs, nil
}

func (p creditCardParser) parseRow(rowNum int, record []string, billYear, billMonth int) (*ParsedTransaction, error) {
	maxCol := p.cfg.DateColumn
	for _, c := range []int{p.cfg.DescColumn, p.cfg.AmountColumn} {
		if c > maxCol {
			maxCol = c
		}
	}
	if len(record) <= maxCol {
		return nil, fmt.Errorf("row has fewer columns than configured for %s", p.cfg.Code)
	}

	date, err := parseBankDate(record[p.cfg.DateColumn], p.cfg.DateLayout, billYear, billMonth)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", record[p.cfg.DateColumn], err)
	}
	amount, err := parseCommaAmount(record[p.cfg.AmountColumn])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", record[p.cfg.AmountColumn], err)
	}
	if p.cfg.SkipNegative && amount.IsNegative() {
		return nil, nil
	}
	if amount.IsNegative() {
		amount = amount.Neg()
	}
	description := strings.TrimSpace(record[p.cfg.DescColumn])

	return &ParsedTransaction{
		RowNumber:       rowNum,
		Date:            date,
		Description:     description,
		Amount:          amount,
		FromAccountName: fmt.Sprintf("L-%s Credit Card", p.cfg.Name),
		ToAccountName:   description,
		SuggestedType:   domain.TxExpense,
	}, nil
}

// locateDataStart returns the 0-based line index of the first data
// row: either cfg.SkipRows fixed header lines, or the line right after
// the one containing cfg.HeaderMarker.
func locateDataStart(lines []string, cfg bankconfig.Config) (int, error) {
	if cfg.HeaderMarker == "" {
		if len(lines) <= cfg.SkipRows {
			return 0, fmt.Errorf("parser: %s csv: file shorter than its %d header rows", cfg.Code, cfg.SkipRows)
		}
		return cfg.SkipRows, nil
	}
	for i, line := range lines {
		if strings.Contains(line, cfg.HeaderMarker) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("parser: %s csv: header marker %q not found", cfg.Code, cfg.HeaderMarker)
}

var yearMonthRegexCache = map[string]*regexp.Regexp{}

func billHeaderYearMonth(content []byte, pattern string) (year, month int, err error) {
	return billHeaderYearMonthFromString(string(content), pattern)
}

func billHeaderYearMonthFromString(content, pattern string) (year, month int, err error) {
	re, ok := yearMonthRegexCache[pattern]
	if !ok {
		re, err = regexp.Compile(pattern)
		if err != nil {
			return 0, 0, err
		}
		yearMonthRegexCache[pattern] = re
	}
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0, 0, fmt.Errorf("parser: bill header pattern not found")
	}
	year, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, err
	}
	month, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// parseBankDate parses a bank's per-row date column. When layout omits
// a year (CATHAY's "01/02"), the bill header's year is used, with
// cross-year correction per spec.md §6: a transaction month greater
// than the bill month means the row actually falls in the prior year
// (a statement closing in January commonly lists December purchases).
func parseBankDate(s, layout string, billYear, billMonth int) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(layout, "2006") {
		return time.Parse(layout, s)
	}
	if billYear == 0 {
		return time.Time{}, fmt.Errorf("no bill year available for a year-less date layout")
	}
	partial, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	year := billYear
	if int(partial.Month()) > billMonth {
		year--
	}
	return time.Date(year, partial.Month(), partial.Day(), 0, 0, 0, 0, time.UTC), nil
}

func allBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// decodeBankCSV transcodes Big5 source bytes to UTF-8; utf-8 content
// passes through unchanged.
func decodeBankCSV(content []byte, encoding string) (string, error) {
	if !strings.EqualFold(encoding, "big5") {
		return string(content), nil
	}
	decoded, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), content)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
